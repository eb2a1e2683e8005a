package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ecomx/internal/db/dbtest"
	"ecomx/internal/domain"
)

var fixedNow = time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

func placeOrder(t *testing.T, gdb *gorm.DB, user *domain.User, storeID uuid.UUID, total, status string, at time.Time, lines map[*domain.Product]int) *domain.Order {
	t.Helper()
	c := domain.Cart{UserID: user.ID, StoreID: storeID, Status: domain.CartInactive}
	require.NoError(t, gdb.Create(&c).Error)
	for p, qty := range lines {
		require.NoError(t, gdb.Create(&domain.CartItem{CartID: c.ID, ProductID: p.ID, Quantity: qty}).Error)
	}
	o := &domain.Order{
		CartID:     &c.ID,
		UserID:     user.ID,
		StoreID:    storeID,
		TotalPrice: decimal.RequireFromString(total),
		Status:     status,
		CreatedAt:  at,
	}
	require.NoError(t, gdb.Create(o).Error)
	return o
}

func newAggregator(gdb *gorm.DB, rdb *redis.Client) *Aggregator {
	a := NewAggregator(gdb, rdb, time.Minute)
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestSellerSummary(t *testing.T) {
	gdb := dbtest.New(t)
	seller, store := dbtest.Seller(t, gdb, "")
	buyer := dbtest.Customer(t, gdb)
	old := placeOrder(t, gdb, buyer, store.ID, "10.00", domain.OrderDelivered, fixedNow.AddDate(0, -2, 0), nil)
	mid := placeOrder(t, gdb, buyer, store.ID, "20.00", domain.OrderPending, fixedNow.AddDate(0, 0, -5), nil)
	recent := placeOrder(t, gdb, buyer, store.ID, "30.50", domain.OrderPending, fixedNow.AddDate(0, 0, -1), nil)

	s, err := newAggregator(gdb, nil).SellerSummary(context.Background(), seller.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderCounts{NewOrders: 2, PendingOrders: 2, Delivered: 1}, s.OrderSummary)

	require.Len(t, s.OrderHistory, 3)
	assert.Equal(t, []uint{recent.ID, mid.ID, old.ID}, []uint{s.OrderHistory[0].OrderID, s.OrderHistory[1].OrderID, s.OrderHistory[2].OrderID})
	assert.Equal(t, "30-03-2025", s.OrderHistory[0].OrderedDate)
	assert.Equal(t, "30.50", s.OrderHistory[0].TotalPrice)
	assert.Equal(t, buyer.FullName, s.OrderHistory[0].CustomerName)
}

func TestSellerSummaryWithoutStore(t *testing.T) {
	gdb := dbtest.New(t)
	buyer := dbtest.Customer(t, gdb)

	_, err := newAggregator(gdb, nil).SellerSummary(context.Background(), buyer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSellerSummaryIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	gdb := dbtest.New(t)
	seller, store := dbtest.Seller(t, gdb, "")
	buyer := dbtest.Customer(t, gdb)
	placeOrder(t, gdb, buyer, store.ID, "10.00", domain.OrderPending, fixedNow, nil)
	a := newAggregator(gdb, rdb)
	ctx := context.Background()

	first, err := a.SellerSummary(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, first.OrderHistory, 1)

	placeOrder(t, gdb, buyer, store.ID, "15.00", domain.OrderPending, fixedNow, nil)
	cached, err := a.SellerSummary(ctx, seller.ID)
	require.NoError(t, err)
	assert.Len(t, cached.OrderHistory, 1)

	a.Invalidate(ctx, store.ID)
	fresh, err := a.SellerSummary(ctx, seller.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.OrderHistory, 2)
	assert.Equal(t, int64(2), fresh.OrderSummary.PendingOrders)
}

func TestOrderDetail(t *testing.T) {
	gdb := dbtest.New(t)
	_, store := dbtest.Seller(t, gdb, "")
	buyer := dbtest.Customer(t, gdb)
	other := dbtest.Customer(t, gdb)
	mug := dbtest.Product(t, gdb, store.ID, "Mug", "5.00")
	o := placeOrder(t, gdb, buyer, store.ID, "15.00", domain.OrderPending, fixedNow, map[*domain.Product]int{mug: 3})
	a := newAggregator(gdb, nil)

	d, err := a.OrderDetail(context.Background(), o.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, d.Status)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "Mug", d.Items[0].Product)
	assert.Equal(t, 3, d.Items[0].Quantity)
	assert.Equal(t, "5.00", d.Items[0].Price.StringFixed(2))

	_, err = a.OrderDetail(context.Background(), o.ID, other.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCountersAndStats(t *testing.T) {
	gdb := dbtest.New(t)
	seller, store := dbtest.Seller(t, gdb, "")
	buyer := dbtest.Customer(t, gdb)
	dbtest.Product(t, gdb, store.ID, "Mug", "5.00")
	placeOrder(t, gdb, buyer, store.ID, "10.00", domain.OrderDelivered, fixedNow, nil)
	placeOrder(t, gdb, buyer, store.ID, "4.50", domain.OrderDelivered, fixedNow, nil)
	placeOrder(t, gdb, buyer, store.ID, "99.00", domain.OrderPending, fixedNow, nil)
	require.NoError(t, gdb.Model(store).Association("Customers").Append(buyer))
	require.NoError(t, gdb.Model(&domain.Dashboard{}).Where("owner_id = ?", seller.ID).
		Updates(map[string]any{"total_orders": 3, "eligibility_score": 30}).Error)
	a := newAggregator(gdb, nil)
	ctx := context.Background()

	c, err := a.Counters(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, c.TotalOrders)
	assert.Equal(t, 30, c.EligibilityScore)
	assert.Equal(t, 50000, c.MaxLoanAmount)

	st, err := a.Stats(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Products)
	assert.Equal(t, int64(3), st.Orders)
	assert.Equal(t, int64(1), st.Customers)
	assert.Equal(t, int64(3), st.RecentOrders)
	assert.Equal(t, "14.50", st.Revenue.StringFixed(2))

	recent, err := a.RecentOrders(ctx, store.ID, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
