// Package reports computes catalog and order summary figures on demand.
package reports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
)

type itemLister interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
}

type orderQuantities interface {
	SumLineQuantities(ctx context.Context) (int64, error)
}

// Summary is the GET /reports payload.
type Summary struct {
	TotalProducts       int     `json:"totalProducts"`
	TotalInventoryValue float64 `json:"totalInventoryValue"`
	OutOfStockCount     int     `json:"outOfStockCount"`
	TurnoverRates       string  `json:"turnoverRates"`
}

type Service interface {
	Summary(ctx context.Context) (*Summary, error)
}

type service struct {
	items  itemLister
	orders orderQuantities
}

func NewService(items itemLister, orders orderQuantities) (Service, error) {
	if items == nil {
		return nil, errors.New("item lister required")
	}
	if orders == nil {
		return nil, errors.New("order quantities required")
	}
	return &service{items: items, orders: orders}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to fetch report data")
	}
	sold, err := s.orders.SumLineQuantities(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to fetch report data")
	}
	return summarize(items, sold), nil
}

func summarize(items []models.InventoryItem, sold int64) *Summary {
	value := decimal.Zero
	var stock int64
	outOfStock := 0
	for _, item := range items {
		value = value.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
		stock += int64(item.Quantity)
		if item.Quantity == 0 {
			outOfStock++
		}
	}
	total, _ := value.Float64()
	return &Summary{
		TotalProducts:       len(items),
		TotalInventoryValue: total,
		OutOfStockCount:     outOfStock,
		TurnoverRates:       turnover(sold, stock),
	}
}

// turnover is units sold over units on hand as a percentage, "0%" when
// nothing is on hand.
func turnover(sold, stock int64) string {
	if stock == 0 {
		return "0%"
	}
	rate := decimal.NewFromInt(sold).Div(decimal.NewFromInt(stock)).Mul(decimal.NewFromInt(100))
	return rate.StringFixed(2) + "%"
}
