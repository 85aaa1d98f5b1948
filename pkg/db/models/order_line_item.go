package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderLineItem snapshots an item's name and price at order time.
type OrderLineItem struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Position int       `gorm:"column:position;not null"`
	ItemID   uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	Name     string    `gorm:"column:name;not null"`
	Price    float64   `gorm:"column:price;not null"`
	Quantity int       `gorm:"column:quantity;not null"`
}

func (OrderLineItem) TableName() string { return "order_line_items" }

func (l *OrderLineItem) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}
