package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cart statuses
const (
	CartActive   = "active"
	CartInactive = "inactive"
)

// Cart belongs to one user and one store. ActiveKey is set only while the
// cart is active, so its unique index allows one active cart per (user, store).
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	User      User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	StoreID   uuid.UUID  `gorm:"type:char(36);not null;index" json:"store_id"`
	Status    string     `gorm:"size:20;not null;default:'active'" json:"status"`
	ActiveKey *string    `gorm:"size:64;uniqueIndex" json:"-"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one product line in a cart; (cart, product) is unique.
type CartItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	CartID    uint    `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Product   Product `gorm:"constraint:OnDelete:CASCADE" json:"product"`
	Quantity  int     `gorm:"not null;default:1" json:"quantity"`
}

// ActiveCartKey is the value of Cart.ActiveKey for the active cart of a user in a store
func ActiveCartKey(userID uint, storeID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", userID, storeID)
}

// NewActiveCart builds an active cart row for the given user and store
func NewActiveCart(userID uint, storeID uuid.UUID) Cart {
	key := ActiveCartKey(userID, storeID)
	return Cart{UserID: userID, StoreID: storeID, Status: CartActive, ActiveKey: &key}
}
