package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	List(ctx context.Context, ownerID *uuid.UUID) ([]models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ReplaceLineItems(ctx context.Context, id uuid.UUID, lines []models.OrderLineItem, total float64, status *enums.PaymentStatus) error
	UpdateFulfillmentStatus(ctx context.Context, id uuid.UUID, status enums.FulfillmentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	SumLineQuantities(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// List returns orders with lines and owner summaries. A nil ownerID lists
// every order.
func (r *repository) List(ctx context.Context, ownerID *uuid.UUID) ([]models.Order, error) {
	q := r.preloaded(ctx)
	if ownerID != nil {
		q = q.Where("user_id = ?", *ownerID)
	}
	var orders []models.Order
	err := q.Order("created_at ASC").Find(&orders).Error
	return orders, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ReplaceLineItems swaps the full line set and rewrites the total. Callers
// should run it inside a transaction.
func (r *repository) ReplaceLineItems(ctx context.Context, id uuid.UUID, lines []models.OrderLineItem, total float64, status *enums.PaymentStatus) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].OrderID = id
	}
	if len(lines) > 0 {
		if err := db.Create(&lines).Error; err != nil {
			return err
		}
	}

	updates := map[string]any{"total_amount": total}
	if status != nil {
		updates["status"] = *status
	}
	return r.updateOrder(ctx, id, updates)
}

func (r *repository) UpdateFulfillmentStatus(ctx context.Context, id uuid.UUID, status enums.FulfillmentStatus) error {
	return r.updateOrder(ctx, id, map[string]any{"order_status": status})
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	res := db.Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return db.Where("order_id = ?", id).Delete(&models.OrderLineItem{}).Error
}

// SumLineQuantities totals the quantity of every order line ever recorded.
func (r *repository) SumLineQuantities(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repository) updateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("User")
}
