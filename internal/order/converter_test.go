package order

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ecomx/internal/cart"
	"ecomx/internal/db/dbtest"
	"ecomx/internal/domain"
)

type checkout struct {
	db       *gorm.DB
	customer *domain.User
	seller   *domain.User
	store    *domain.Store
	mug      *domain.Product
	shirt    *domain.Product
}

func newCheckout(t *testing.T) *checkout {
	t.Helper()
	gdb := dbtest.New(t)
	seller, store := dbtest.Seller(t, gdb, "")
	return &checkout{
		db:       gdb,
		customer: dbtest.Customer(t, gdb),
		seller:   seller,
		store:    store,
		mug:      dbtest.Product(t, gdb, store.ID, "Mug", "5.00"),
		shirt:    dbtest.Product(t, gdb, store.ID, "Shirt", "12.50"),
	}
}

func (c *checkout) fill(t *testing.T) {
	t.Helper()
	m := cart.NewManager(c.db)
	_, err := m.AddItem(context.Background(), c.customer.ID, c.mug.ID, 2)
	require.NoError(t, err)
	_, err = m.AddItem(context.Background(), c.customer.ID, c.shirt.ID, 1)
	require.NoError(t, err)
}

func (c *checkout) dashboard(t *testing.T) domain.Dashboard {
	t.Helper()
	var d domain.Dashboard
	require.NoError(t, c.db.Where("owner_id = ?", c.seller.ID).First(&d).Error)
	return d
}

func TestPlaceOrderConvertsCart(t *testing.T) {
	c := newCheckout(t)
	c.fill(t)
	conv := NewConverter(c.db, TotalByQuantity)

	order, err := conv.PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{
		PaymentMethod:   "card",
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, c.store.ID, order.StoreID)
	assert.True(t, decimal.RequireFromString("22.50").Equal(order.TotalPrice), order.TotalPrice.String())

	var old domain.Cart
	require.NoError(t, c.db.First(&old, *order.CartID).Error)
	assert.Equal(t, domain.CartInactive, old.Status)
	assert.Nil(t, old.ActiveKey)

	var active []domain.Cart
	require.NoError(t, c.db.Where("user_id = ? AND store_id = ? AND status = ?", c.customer.ID, c.store.ID, domain.CartActive).Find(&active).Error)
	require.Len(t, active, 1)
	assert.NotEqual(t, old.ID, active[0].ID)

	var orders int64
	require.NoError(t, c.db.Model(&domain.Order{}).Where("cart_id = ?", old.ID).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

func TestPlaceOrderUnitTotalMode(t *testing.T) {
	c := newCheckout(t)
	c.fill(t)

	order, err := NewConverter(c.db, TotalByUnit).PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("17.50").Equal(order.TotalPrice), order.TotalPrice.String())
}

func TestPlaceOrderWithoutActiveCart(t *testing.T) {
	c := newCheckout(t)

	_, err := NewConverter(c.db, TotalByQuantity).PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var orders int64
	require.NoError(t, c.db.Model(&domain.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	c := newCheckout(t)
	_, err := cart.NewManager(c.db).ViewCart(context.Background(), c.customer.ID, c.store.ID)
	require.NoError(t, err)

	_, err = NewConverter(c.db, TotalByQuantity).PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{StoreID: &c.store.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlaceOrderUpdatesDashboard(t *testing.T) {
	c := newCheckout(t)
	conv := NewConverter(c.db, TotalByQuantity)

	c.fill(t)
	_, err := conv.PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{})
	require.NoError(t, err)
	c.fill(t)
	_, err = conv.PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{StoreID: &c.store.ID})
	require.NoError(t, err)

	d := c.dashboard(t)
	assert.Equal(t, 2*domain.EligibilityStep, d.EligibilityScore)
	assert.Equal(t, 2, d.TotalOrders)
	assert.Equal(t, 1, d.NewCustomers)
	assert.True(t, decimal.RequireFromString("45.00").Equal(d.TotalRevenue), d.TotalRevenue.String())

	var members int64
	require.NoError(t, c.db.Table("store_customers").Where("store_id = ? AND user_id = ?", c.store.ID, c.customer.ID).Count(&members).Error)
	assert.Equal(t, int64(1), members)
}

func TestPlaceOrderSurvivesMissingDashboard(t *testing.T) {
	c := newCheckout(t)
	require.NoError(t, c.db.Where("owner_id = ?", c.seller.ID).Delete(&domain.Dashboard{}).Error)
	c.fill(t)

	order, err := NewConverter(c.db, TotalByQuantity).PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)

	var members int64
	require.NoError(t, c.db.Table("store_customers").Count(&members).Error)
	assert.Zero(t, members, "savepoint rolled back")
}

func TestUpdateStatus(t *testing.T) {
	c := newCheckout(t)
	c.fill(t)
	conv := NewConverter(c.db, TotalByQuantity)
	order, err := conv.PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = conv.UpdateStatus(ctx, order.ID, c.customer.ID, domain.OrderDelivered)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = conv.UpdateStatus(ctx, order.ID, c.seller.ID, "shipped")
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := conv.UpdateStatus(ctx, order.ID, c.seller.ID, domain.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, updated.Status)

	_, err = conv.UpdateStatus(ctx, order.ID, c.seller.ID, domain.OrderCancelled)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = conv.UpdateStatus(ctx, 9999, c.seller.ID, domain.OrderCancelled)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceOrderSkipsEmptyCartsWithoutStore(t *testing.T) {
	c := newCheckout(t)
	_, other := dbtest.Seller(t, c.db, "")
	lamp := dbtest.Product(t, c.db, other.ID, "Lamp", "30.00")
	m := cart.NewManager(c.db)
	conv := NewConverter(c.db, TotalByQuantity)

	_, err := m.AddItem(context.Background(), c.customer.ID, c.mug.ID, 1)
	require.NoError(t, err)
	_, err = m.AddItem(context.Background(), c.customer.ID, lamp.ID, 1)
	require.NoError(t, err)

	first, err := conv.PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, other.ID, first.StoreID)

	// The lamp store now has a newer, empty active cart.
	second, err := conv.PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, c.store.ID, second.StoreID)
	assert.True(t, decimal.RequireFromString("5.00").Equal(second.TotalPrice), second.TotalPrice.String())

	_, err = conv.PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConcurrentCheckoutCreatesOneOrder(t *testing.T) {
	c := newCheckout(t)
	c.fill(t)
	conv := NewConverter(c.db, TotalByQuantity)

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = conv.PlaceOrder(context.Background(), c.customer.ID, PlaceOrderRequest{StoreID: &c.store.ID})
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Equal(t, 1, placed)

	var orders int64
	require.NoError(t, c.db.Model(&domain.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
	var active int64
	require.NoError(t, c.db.Model(&domain.Cart{}).Where("user_id = ? AND status = ?", c.customer.ID, domain.CartActive).Count(&active).Error)
	assert.Equal(t, int64(1), active)
}
