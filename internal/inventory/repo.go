package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
)

// DecrementResult reports how a conditional stock decrement resolved.
type DecrementResult int

const (
	DecrementApplied DecrementResult = iota
	DecrementMissing
	DecrementInsufficient
)

// Repository persists inventory items.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// List returns every item, oldest first.
func (r *Repository) List(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error
	return items, err
}

// ListBelow returns items whose quantity is strictly below threshold.
func (r *Repository) ListBelow(ctx context.Context, threshold int) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("quantity < ?", threshold).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Update applies the given column values and bumps updated_at.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete hard-deletes the item; gorm.ErrRecordNotFound when absent.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.InventoryItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock subtracts qty only when enough stock remains, so concurrent
// callers can never drive quantity below zero. The remaining quantity is
// returned when the decrement applied.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (DecrementResult, *models.InventoryItem, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.InventoryItem{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return DecrementMissing, nil, res.Error
	}

	var item models.InventoryItem
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DecrementMissing, nil, nil
	}
	if err != nil {
		return DecrementMissing, nil, err
	}
	if res.RowsAffected == 0 {
		return DecrementInsufficient, &item, nil
	}
	return DecrementApplied, &item, nil
}
