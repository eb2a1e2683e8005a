package domain

import "time"

// Payment statuses
const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Payment records a transaction for an order. Nothing here moves money.
type Payment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	Order         Order     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TransactionID string    `gorm:"size:100;not null;uniqueIndex" json:"transaction_id"`
	PaymentMethod string    `gorm:"size:20" json:"payment_method"`
	Status        string    `gorm:"size:20;not null;default:'pending'" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
