// Package cart owns the active-cart lifecycle: one active cart per
// (user, store) and one line per product within it.
package cart

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

// errCartRace marks a lost race creating the active cart; the caller retries.
var errCartRace = errors.New("active cart created concurrently")

// ItemView is the product snapshot returned for a cart line
type ItemView struct {
	ID           uint            `json:"id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	ProductImage string          `json:"product_image"`
}

// Manager mutates carts and their items
type Manager struct {
	db *gorm.DB
}

// NewManager returns a Manager backed by db
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetOrCreateActive returns the user's active cart in the store with its row
// locked, creating it when missing. Must run inside a transaction.
func GetOrCreateActive(tx *gorm.DB, userID uint, storeID uuid.UUID) (*domain.Cart, error) {
	var c domain.Cart
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("active_key = ?", domain.ActiveCartKey(userID, storeID)).
		First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = domain.NewActiveCart(userID, storeID)
	if err := tx.Create(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %w", errCartRace, err)
		}
		return nil, err
	}
	return &c, nil
}

// AddItem adds quantity of a product to the user's active cart for the
// product's store. A repeated add increments the existing line.
func (m *Manager) AddItem(ctx context.Context, userID, productID uint, quantity int) (*ItemView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", domain.ErrValidation)
	}
	product, err := m.product(ctx, productID)
	if err != nil {
		return nil, err
	}

	var item domain.CartItem
	err = m.withRetry(func() error {
		return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			c, err := GetOrCreateActive(tx, userID, product.StoreID)
			if err != nil {
				return err
			}
			item = domain.CartItem{CartID: c.ID, ProductID: product.ID, Quantity: quantity}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
				DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("quantity + ?", quantity)}),
			}).Create(&item).Error
			if err != nil {
				return err
			}
			return tx.Where("cart_id = ? AND product_id = ?", c.ID, product.ID).First(&item).Error
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"cart_id":    item.CartID,
		"quantity":   item.Quantity,
	}).Info("Cart item added")
	view := toView(*product, item.Quantity)
	return &view, nil
}

// RemoveItem deletes the product's line from the user's active cart
func (m *Manager) RemoveItem(ctx context.Context, userID, productID uint) error {
	product, err := m.product(ctx, productID)
	if err != nil {
		return err
	}
	var c domain.Cart
	err = m.db.WithContext(ctx).Where("active_key = ?", domain.ActiveCartKey(userID, product.StoreID)).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("active cart: %w", domain.ErrNotFound)
	} else if err != nil {
		return err
	}
	res := m.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", c.ID, productID).Delete(&domain.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item: %w", domain.ErrNotFound)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "product_id": productID, "cart_id": c.ID}).Info("Cart item removed")
	return nil
}

// ViewCart lists the items of the user's active cart in the store, opening
// an empty cart when there is none.
func (m *Manager) ViewCart(ctx context.Context, userID uint, storeID uuid.UUID) ([]ItemView, error) {
	var store domain.Store
	if err := m.db.WithContext(ctx).Select("id").First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store %s: %w", storeID, domain.ErrNotFound)
		}
		return nil, err
	}

	var items []domain.CartItem
	err := m.withRetry(func() error {
		return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			c, err := GetOrCreateActive(tx, userID, storeID)
			if err != nil {
				return err
			}
			return tx.Preload("Product.Images").Where("cart_id = ?", c.ID).Order("id").Find(&items).Error
		})
	})
	if err != nil {
		return nil, err
	}

	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, toView(it.Product, it.Quantity))
	}
	return views, nil
}

// withRetry runs fn again once when it lost the active-cart creation race
func (m *Manager) withRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, errCartRace) {
		err = fn()
	}
	return err
}

func (m *Manager) product(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	if err := m.db.WithContext(ctx).Preload("Images").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func toView(p domain.Product, quantity int) ItemView {
	return ItemView{
		ID:           p.ID,
		ProductName:  p.Name,
		Quantity:     quantity,
		Price:        p.Price,
		ProductImage: p.FirstImageURL(),
	}
}
