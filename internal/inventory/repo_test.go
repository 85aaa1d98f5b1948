package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/db/dbtest"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
)

func seedItem(t *testing.T, repo *Repository, name string, qty int, price float64) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{Name: name, Quantity: qty, Location: "A1", Price: price}
	require.NoError(t, repo.Create(context.Background(), item))
	return item
}

func TestDecrementStockAppliesWhenEnoughStock(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	item := seedItem(t, repo, "Widget", 5, 2)

	result, after, err := repo.DecrementStock(context.Background(), item.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, DecrementApplied, result)
	assert.Equal(t, 3, after.Quantity)
}

func TestDecrementStockRefusesToGoNegative(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	item := seedItem(t, repo, "Widget", 1, 2)

	result, after, err := repo.DecrementStock(context.Background(), item.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, DecrementInsufficient, result)
	assert.Equal(t, 1, after.Quantity)
}

func TestDecrementStockMissingItem(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())

	result, after, err := repo.DecrementStock(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	assert.Equal(t, DecrementMissing, result)
	assert.Nil(t, after)
}

func TestDecrementStockConcurrentCallersNeverOversell(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	item := seedItem(t, repo, "Widget", 3, 2)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, _, err := repo.DecrementStock(context.Background(), item.ID, 1)
			if err == nil && result == DecrementApplied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	reloaded, err := repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	assert.Equal(t, 0, reloaded.Quantity)
}

func TestUpdateAppliesZeroValues(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	item := seedItem(t, repo, "Widget", 5, 2)

	require.NoError(t, repo.Update(context.Background(), item.ID, map[string]any{"quantity": 0, "description": ""}))

	reloaded, err := repo.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Quantity)
	assert.Equal(t, "Widget", reloaded.Name)
}

func TestDeleteMissingItem(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	err := repo.Delete(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestListBelow(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	seedItem(t, repo, "low", 3, 1)
	seedItem(t, repo, "high", 50, 1)

	items, err := repo.ListBelow(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "low", items[0].Name)
}
