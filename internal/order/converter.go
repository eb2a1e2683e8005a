// Package order turns active carts into orders and tracks their status and payments.
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecomx/internal/domain"
)

// TotalMode selects how an order total is computed from cart lines
type TotalMode string

const (
	TotalByQuantity TotalMode = "quantity" // price x quantity per line
	TotalByUnit     TotalMode = "unit"     // sum of unit prices, quantity ignored
)

// ParseTotalMode maps a config value to a TotalMode, defaulting to TotalByQuantity
func ParseTotalMode(s string) TotalMode {
	if TotalMode(s) == TotalByUnit {
		return TotalByUnit
	}
	return TotalByQuantity
}

// PlaceOrderRequest carries checkout input. StoreID picks the cart to check
// out; when nil the user's newest active cart is used.
type PlaceOrderRequest struct {
	StoreID         *uuid.UUID
	PaymentMethod   string
	ShippingAddress string
}

// Converter places orders and moves them through their status lifecycle
type Converter struct {
	db   *gorm.DB
	mode TotalMode
}

// NewConverter returns a Converter backed by db
func NewConverter(db *gorm.DB, mode TotalMode) *Converter {
	return &Converter{db: db, mode: mode}
}

// PlaceOrder converts the user's active cart into a pending order, deactivates
// the cart and opens a fresh one for the same store, all in one transaction.
// The dashboard update runs in a savepoint; its failure is logged and dropped.
func (c *Converter) PlaceOrder(ctx context.Context, userID uint, req PlaceOrderRequest) (*domain.Order, error) {
	var order domain.Order
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCheckoutCart(tx, userID, req.StoreID)
		if err != nil {
			return err
		}

		var items []domain.CartItem
		if err := tx.Preload("Product").Where("cart_id = ?", cart.ID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("cart %d is empty: %w", cart.ID, domain.ErrValidation)
		}

		order = domain.Order{
			CartID:          &cart.ID,
			UserID:          userID,
			StoreID:         cart.StoreID,
			TotalPrice:      Total(items, c.mode),
			Status:          domain.OrderPending,
			PaymentMethod:   req.PaymentMethod,
			ShippingAddress: req.ShippingAddress,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Clearing active_key releases the (user, store) slot for the new cart.
		if err := tx.Model(cart).Updates(map[string]any{
			"status":     domain.CartInactive,
			"active_key": nil,
		}).Error; err != nil {
			return err
		}
		next := domain.NewActiveCart(userID, cart.StoreID)
		if err := tx.Create(&next).Error; err != nil {
			return err
		}

		if err := tx.Transaction(func(stx *gorm.DB) error {
			return bumpDashboard(stx, &order)
		}); err != nil {
			logrus.WithFields(logrus.Fields{
				"order_id": order.ID,
				"store_id": order.StoreID,
				"error":    err.Error(),
			}).Warn("Dashboard update skipped")
		}
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Order placement failed")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"order_id":    order.ID,
		"store_id":    order.StoreID,
		"total_price": order.TotalPrice.StringFixed(2),
	}).Info("Order placed")
	return &order, nil
}

// lockCheckoutCart locks the active cart to convert. Without a store the
// newest active cart holding items is used, since every checkout and cart
// view leaves an empty active cart behind.
func lockCheckoutCart(tx *gorm.DB, userID uint, storeID *uuid.UUID) (*domain.Cart, error) {
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND active_key IS NOT NULL", userID)
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	} else {
		q = q.Where("EXISTS (SELECT 1 FROM cart_items WHERE cart_items.cart_id = carts.id)")
	}
	var cart domain.Cart
	err := q.Order("id DESC").First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if storeID == nil {
		var open int64
		if err := tx.Model(&domain.Cart{}).Where("user_id = ? AND active_key IS NOT NULL", userID).Count(&open).Error; err != nil {
			return nil, err
		}
		if open > 0 {
			return nil, fmt.Errorf("every active cart is empty: %w", domain.ErrValidation)
		}
	}
	return nil, fmt.Errorf("active cart: %w", domain.ErrNotFound)
}

// Total sums the cart lines according to mode
func Total(items []domain.CartItem, mode TotalMode) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if mode == TotalByUnit {
			total = total.Add(it.Product.Price)
			continue
		}
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// bumpDashboard updates the store owner's running counters for a new order.
// A buyer's first order in the store also counts as a new customer.
func bumpDashboard(tx *gorm.DB, order *domain.Order) error {
	var store domain.Store
	if err := tx.First(&store, "id = ?", order.StoreID).Error; err != nil {
		return fmt.Errorf("store %s: %w", order.StoreID, err)
	}

	var previous int64
	if err := tx.Model(&domain.Order{}).
		Where("user_id = ? AND store_id = ? AND id <> ?", order.UserID, order.StoreID, order.ID).
		Count(&previous).Error; err != nil {
		return err
	}
	firstOrder := previous == 0

	updates := map[string]any{
		"eligibility_score": gorm.Expr("eligibility_score + ?", domain.EligibilityStep),
		"total_orders":      gorm.Expr("total_orders + 1"),
		"total_revenue":     gorm.Expr("total_revenue + ?", order.TotalPrice),
	}
	if firstOrder {
		updates["new_customers"] = gorm.Expr("new_customers + 1")
	}
	res := tx.Model(&domain.Dashboard{}).Where("owner_id = ?", store.OwnerID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("dashboard of seller %d: %w", store.OwnerID, domain.ErrNotFound)
	}

	if !firstOrder {
		return nil
	}
	var member int64
	if err := tx.Table("store_customers").
		Where("store_id = ? AND user_id = ?", store.ID, order.UserID).
		Count(&member).Error; err != nil {
		return err
	}
	if member > 0 {
		return nil
	}
	var buyer domain.User
	if err := tx.First(&buyer, order.UserID).Error; err != nil {
		return err
	}
	return tx.Model(&store).Association("Customers").Append(&buyer)
}

// UpdateStatus lets the store owner move a pending order to delivered or cancelled
func (c *Converter) UpdateStatus(ctx context.Context, orderID, sellerID uint, status string) (*domain.Order, error) {
	if status != domain.OrderDelivered && status != domain.OrderCancelled && status != domain.OrderPending {
		return nil, fmt.Errorf("unknown order status %q: %w", status, domain.ErrValidation)
	}

	var order domain.Order
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
			}
			return err
		}
		if err := requireStoreOwner(tx, order.StoreID, sellerID); err != nil {
			return err
		}
		if !order.CanTransitionTo(status) {
			return fmt.Errorf("order %d cannot move from %s to %s: %w", orderID, order.Status, status, domain.ErrConflict)
		}
		order.Status = status
		return tx.Model(&order).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"seller_id": sellerID,
		"status":    status,
	}).Info("Order status changed")
	return &order, nil
}

// requireStoreOwner fails with ErrForbidden unless sellerID owns the store
func requireStoreOwner(tx *gorm.DB, storeID uuid.UUID, sellerID uint) error {
	var store domain.Store
	if err := tx.Select("id", "owner_id").First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("store %s: %w", storeID, domain.ErrNotFound)
		}
		return err
	}
	if store.OwnerID != sellerID {
		return fmt.Errorf("store %s: %w", storeID, domain.ErrForbidden)
	}
	return nil
}
