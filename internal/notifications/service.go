package notifications

import (
	"context"
	"errors"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
)

const defaultLowStockThreshold = 10

type stockReader interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
	ListBelow(ctx context.Context, threshold int) ([]models.InventoryItem, error)
}

// Service exposes the stock-level alert listing.
type Service interface {
	StockLevels(ctx context.Context) ([]models.InventoryItem, error)
}

type service struct {
	items     stockReader
	threshold int
}

func NewService(items stockReader, threshold int) (Service, error) {
	if items == nil {
		return nil, errors.New("inventory reader required")
	}
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return &service{items: items, threshold: threshold}, nil
}

// StockLevels returns items below the threshold, or every item when none are.
func (s *service) StockLevels(ctx context.Context) ([]models.InventoryItem, error) {
	low, err := s.items.ListBelow(ctx, s.threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Server error")
	}
	if len(low) > 0 {
		return low, nil
	}
	all, err := s.items.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Server error")
	}
	return all, nil
}
