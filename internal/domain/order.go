package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses
const (
	OrderPending   = "pending"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order is created from exactly one cart at checkout. Only Status changes afterwards.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CartID          *uint           `gorm:"uniqueIndex" json:"cart_id"`
	Cart            *Cart           `json:"-"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	User            User            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	StoreID         uuid.UUID       `gorm:"type:char(36);not null;index" json:"store_id"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status          string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PaymentMethod   string          `gorm:"size:200" json:"payment_method"`
	ShippingAddress string          `gorm:"size:300" json:"shipping_address"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}

// CanTransitionTo reports whether the order may move to the given status
func (o Order) CanTransitionTo(status string) bool {
	return o.Status == OrderPending && (status == OrderDelivered || status == OrderCancelled)
}
