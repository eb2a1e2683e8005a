// Package dashboard builds the read-only seller views: order summaries,
// order details, running counters and store statistics.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ecomx/internal/domain"
	"ecomx/internal/utils"
)

// RecentWindow is how far back an order counts as new in the seller summary
const RecentWindow = 30 * 24 * time.Hour

// OrderCounts summarises a store's orders
type OrderCounts struct {
	NewOrders     int64 `json:"new_orders"`
	PendingOrders int64 `json:"pending_orders"`
	Delivered     int64 `json:"delivered"`
}

// HistoryEntry is one order in the seller's history
type HistoryEntry struct {
	OrderID      uint   `json:"order_id"`
	OrderedDate  string `json:"ordered_date"`
	CustomerName string `json:"customer_name"`
	TotalPrice   string `json:"total_price"`
	Status       string `json:"status"`
}

// Summary is the seller's order overview
type Summary struct {
	OrderSummary OrderCounts    `json:"order_summary"`
	OrderHistory []HistoryEntry `json:"order_history"`
}

// LineItem is a product line of an order
type LineItem struct {
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderDetail is an order with its line items
type OrderDetail struct {
	ID     uint       `json:"id"`
	Status string     `json:"status"`
	Items  []LineItem `json:"items"`
}

// RecentOrder is an order with its lines, used for chat listings
type RecentOrder struct {
	domain.Order
	Items []LineItem
}

// Counters is the seller's running dashboard
type Counters struct {
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	NewCustomers     int             `json:"new_customers"`
	TotalOrders      int             `json:"total_orders"`
	EligibilityScore int             `json:"eligibility_score"`
	MaxLoanAmount    int             `json:"max_loan_amount"`
}

// StoreStats aggregates a store's catalog and orders
type StoreStats struct {
	StoreName    string
	Products     int64
	Orders       int64
	Revenue      decimal.Decimal
	Customers    int64
	RecentOrders int64
}

// Aggregator reads dashboard data. The Redis client is optional; without it
// summaries are computed on every call.
type Aggregator struct {
	db  *gorm.DB
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewAggregator returns an Aggregator caching summaries in rdb for ttl
func NewAggregator(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *Aggregator {
	return &Aggregator{db: db, rdb: rdb, ttl: ttl, now: time.Now}
}

// SellerSummary returns order counts and the newest-first order history of
// the seller's store.
func (a *Aggregator) SellerSummary(ctx context.Context, sellerID uint) (*Summary, error) {
	store, err := a.storeOf(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	key := utils.SummaryCacheKey(store.ID)
	if a.rdb != nil {
		var cached Summary
		found, err := utils.GetCache(ctx, a.rdb, key, &cached)
		if err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Summary cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	db := a.db.WithContext(ctx)
	var s Summary
	base := func() *gorm.DB { return db.Model(&domain.Order{}).Where("store_id = ?", store.ID) }
	if err := base().Where("created_at >= ?", a.now().Add(-RecentWindow)).Count(&s.OrderSummary.NewOrders).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", domain.OrderPending).Count(&s.OrderSummary.PendingOrders).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", domain.OrderDelivered).Count(&s.OrderSummary.Delivered).Error; err != nil {
		return nil, err
	}

	var orders []domain.Order
	if err := db.Preload("User").Where("store_id = ?", store.ID).
		Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	s.OrderHistory = make([]HistoryEntry, 0, len(orders))
	for _, o := range orders {
		s.OrderHistory = append(s.OrderHistory, HistoryEntry{
			OrderID:      o.ID,
			OrderedDate:  o.CreatedAt.Format("02-01-2006"),
			CustomerName: o.User.DisplayName(),
			TotalPrice:   o.TotalPrice.StringFixed(2),
			Status:       o.Status,
		})
	}

	if a.rdb != nil {
		if err := utils.SetCache(ctx, a.rdb, key, s, a.ttl); err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Summary cache write failed")
		}
	}
	return &s, nil
}

// Invalidate drops the cached summary of a store
func (a *Aggregator) Invalidate(ctx context.Context, storeID uuid.UUID) {
	if a.rdb == nil {
		return
	}
	if err := utils.DeleteCache(ctx, a.rdb, utils.SummaryCacheKey(storeID)); err != nil {
		logrus.WithFields(logrus.Fields{"store_id": storeID, "error": err.Error()}).Warn("Summary cache invalidation failed")
	}
}

// OrderDetail returns the buyer's order with the lines of its cart.
// Orders of other users are reported as not found.
func (a *Aggregator) OrderDetail(ctx context.Context, orderID, userID uint) (*OrderDetail, error) {
	var o domain.Order
	err := a.db.WithContext(ctx).Where("id = ? AND user_id = ?", orderID, userID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	} else if err != nil {
		return nil, err
	}
	items, err := a.lines(ctx, o.CartID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{ID: o.ID, Status: o.Status, Items: items}, nil
}

// Counters returns the seller's running dashboard counters
func (a *Aggregator) Counters(ctx context.Context, sellerID uint) (*Counters, error) {
	var d domain.Dashboard
	err := a.db.WithContext(ctx).Where("owner_id = ?", sellerID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("dashboard of seller %d: %w", sellerID, domain.ErrNotFound)
	} else if err != nil {
		return nil, err
	}
	return &Counters{
		TotalRevenue:     d.TotalRevenue,
		NewCustomers:     d.NewCustomers,
		TotalOrders:      d.TotalOrders,
		EligibilityScore: d.EligibilityScore,
		MaxLoanAmount:    d.MaxLoanAmount,
	}, nil
}

// RecentOrders returns the newest orders of a store with their lines
func (a *Aggregator) RecentOrders(ctx context.Context, storeID uuid.UUID, limit int) ([]RecentOrder, error) {
	var orders []domain.Order
	if err := a.db.WithContext(ctx).Where("store_id = ?", storeID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	recent := make([]RecentOrder, 0, len(orders))
	for _, o := range orders {
		items, err := a.lines(ctx, o.CartID)
		if err != nil {
			return nil, err
		}
		recent = append(recent, RecentOrder{Order: o, Items: items})
	}
	return recent, nil
}

// Stats counts products, orders and customers of a store. Revenue covers
// delivered orders only.
func (a *Aggregator) Stats(ctx context.Context, store *domain.Store) (*StoreStats, error) {
	db := a.db.WithContext(ctx)
	st := StoreStats{StoreName: store.Name}
	if err := db.Model(&domain.Product{}).Where("store_id = ?", store.ID).Count(&st.Products).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Order{}).Where("store_id = ?", store.ID).Count(&st.Orders).Error; err != nil {
		return nil, err
	}
	var revenue struct{ Total decimal.NullDecimal }
	if err := db.Model(&domain.Order{}).
		Where("store_id = ? AND status = ?", store.ID, domain.OrderDelivered).
		Select("SUM(total_price) AS total").Scan(&revenue).Error; err != nil {
		return nil, err
	}
	st.Revenue = revenue.Total.Decimal
	if err := db.Table("store_customers").Where("store_id = ?", store.ID).Count(&st.Customers).Error; err != nil {
		return nil, err
	}
	st.RecentOrders = min(st.Orders, 5)
	return &st, nil
}

func (a *Aggregator) storeOf(ctx context.Context, sellerID uint) (*domain.Store, error) {
	var store domain.Store
	err := a.db.WithContext(ctx).Where("owner_id = ?", sellerID).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("store of seller %d: %w", sellerID, domain.ErrNotFound)
	} else if err != nil {
		return nil, err
	}
	return &store, nil
}

func (a *Aggregator) lines(ctx context.Context, cartID *uint) ([]LineItem, error) {
	items := []LineItem{}
	if cartID == nil {
		return items, nil
	}
	var rows []domain.CartItem
	if err := a.db.WithContext(ctx).Preload("Product").Where("cart_id = ?", *cartID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		items = append(items, LineItem{Product: r.Product.Name, Quantity: r.Quantity, Price: r.Product.Price})
	}
	return items, nil
}
