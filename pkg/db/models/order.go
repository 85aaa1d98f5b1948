package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/enums"
)

// Order is a customer order. UserID is an advisory reference; no foreign key
// is declared in the schema.
type Order struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount   float64                 `gorm:"column:total_amount;not null"`
	Supplier      *string                 `gorm:"column:supplier"`
	Status        enums.PaymentStatus     `gorm:"column:status;not null"`
	OrderStatus   enums.FulfillmentStatus `gorm:"column:order_status;not null"`
	PaymentMethod *enums.PaymentMethod    `gorm:"column:payment_method"`
	LineItems     []OrderLineItem         `gorm:"foreignKey:OrderID"`
	User          *User                   `gorm:"foreignKey:UserID"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	if o.Status == "" {
		o.Status = enums.PaymentStatusCashOnDelivery
	}
	if o.OrderStatus == "" {
		o.OrderStatus = enums.FulfillmentPlaced
	}
	return nil
}
