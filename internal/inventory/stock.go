package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
)

// TxStock runs stock decrements on a transaction owned by the caller.
type TxStock struct {
	repo *Repository
}

func NewTxStock(repo *Repository) *TxStock {
	return &TxStock{repo: repo}
}

func (s *TxStock) DecrementStock(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) (DecrementResult, *models.InventoryItem, error) {
	return s.repo.WithTx(tx).DecrementStock(ctx, itemID, qty)
}
