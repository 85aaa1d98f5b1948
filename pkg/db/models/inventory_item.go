package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/backoffice-api/pkg/db/types"
)

// InventoryItem is a catalog entry with its on-hand quantity.
type InventoryItem struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string             `gorm:"column:name;not null" json:"name"`
	Quantity    int                `gorm:"column:quantity;not null;default:0" json:"quantity"`
	Location    string             `gorm:"column:location;not null" json:"location"`
	Description string             `gorm:"column:description;not null;default:''" json:"description"`
	Images      dbtypes.StringList `gorm:"column:images;not null" json:"images"`
	Price       float64            `gorm:"column:price;not null;default:0" json:"price"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	if i.Images == nil {
		i.Images = dbtypes.StringList{}
	}
	return nil
}
