package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ecomx/internal/db/dbtest"
	"ecomx/internal/domain"
)

func TestAddItemTwiceSumsQuantity(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")
	product := dbtest.Product(t, gdb, store.ID, "Leather Jacket", "79.99")
	m := NewManager(gdb)

	first, err := m.AddItem(ctx, customer.ID, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)

	second, err := m.AddItem(ctx, customer.ID, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, second.Quantity)
	assert.Equal(t, "Leather Jacket", second.ProductName)
	assert.Equal(t, "79.99", second.Price.StringFixed(2))

	var items []domain.CartItem
	require.NoError(t, gdb.Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)

	var carts int64
	require.NoError(t, gdb.Model(&domain.Cart{}).Where("user_id = ? AND status = ?", customer.ID, domain.CartActive).Count(&carts).Error)
	assert.Equal(t, int64(1), carts)
}

func TestAddItemReturnsFirstImage(t *testing.T) {
	gdb := dbtest.New(t)
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")
	product := dbtest.Product(t, gdb, store.ID, "Mug", "5.00")
	require.NoError(t, gdb.Model(product).Association("Images").Append(&domain.Image{PublicID: "p/1", URL: "https://cdn.test/p/1.jpg"}))

	view, err := NewManager(gdb).AddItem(context.Background(), customer.ID, product.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/p/1.jpg", view.ProductImage)
}

func TestAddItemUnknownProduct(t *testing.T) {
	gdb := dbtest.New(t)
	customer := dbtest.Customer(t, gdb)

	_, err := NewManager(gdb).AddItem(context.Background(), customer.ID, 999, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	gdb := dbtest.New(t)
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")
	product := dbtest.Product(t, gdb, store.ID, "Mug", "5.00")

	_, err := NewManager(gdb).AddItem(context.Background(), customer.ID, product.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestActiveCartIsScopedByStore(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	customer := dbtest.Customer(t, gdb)
	_, storeA := dbtest.Seller(t, gdb, "")
	_, storeB := dbtest.Seller(t, gdb, "")
	pa := dbtest.Product(t, gdb, storeA.ID, "A", "1.00")
	pb := dbtest.Product(t, gdb, storeB.ID, "B", "2.00")
	m := NewManager(gdb)

	_, err := m.AddItem(ctx, customer.ID, pa.ID, 1)
	require.NoError(t, err)
	_, err = m.AddItem(ctx, customer.ID, pb.ID, 1)
	require.NoError(t, err)

	itemsA, err := m.ViewCart(ctx, customer.ID, storeA.ID)
	require.NoError(t, err)
	require.Len(t, itemsA, 1)
	assert.Equal(t, "A", itemsA[0].ProductName)

	itemsB, err := m.ViewCart(ctx, customer.ID, storeB.ID)
	require.NoError(t, err)
	require.Len(t, itemsB, 1)
	assert.Equal(t, "B", itemsB[0].ProductName)
}

func TestViewCartOpensCartForStore(t *testing.T) {
	gdb := dbtest.New(t)
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")

	items, err := NewManager(gdb).ViewCart(context.Background(), customer.ID, store.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	var c domain.Cart
	require.NoError(t, gdb.Where("user_id = ?", customer.ID).First(&c).Error)
	assert.Equal(t, store.ID, c.StoreID)
	assert.Equal(t, domain.CartActive, c.Status)
}

func TestViewCartUnknownStore(t *testing.T) {
	gdb := dbtest.New(t)
	customer := dbtest.Customer(t, gdb)

	_, err := NewManager(gdb).ViewCart(context.Background(), customer.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveItem(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")
	product := dbtest.Product(t, gdb, store.ID, "Mug", "5.00")
	m := NewManager(gdb)

	err := m.RemoveItem(ctx, customer.ID, product.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "no active cart yet")

	_, err = m.AddItem(ctx, customer.ID, product.ID, 1)
	require.NoError(t, err)
	require.NoError(t, m.RemoveItem(ctx, customer.ID, product.ID))

	err = m.RemoveItem(ctx, customer.ID, product.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "item already removed")

	items, err := m.ViewCart(ctx, customer.ID, store.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestConcurrentAddItemKeepsOneRow(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")
	product := dbtest.Product(t, gdb, store.ID, "Mug", "5.00")
	m := NewManager(gdb)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.AddItem(ctx, customer.ID, product.ID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var items []domain.CartItem
	require.NoError(t, gdb.Where("product_id = ?", product.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, workers, items[0].Quantity)

	var carts int64
	require.NoError(t, gdb.Model(&domain.Cart{}).Where("user_id = ? AND status = ?", customer.ID, domain.CartActive).Count(&carts).Error)
	assert.Equal(t, int64(1), carts)
}

// insertCompetingCart registers a create callback that, on the first cart
// insert, writes the same active cart first, as a concurrent request would.
func insertCompetingCart(t *testing.T, gdb *gorm.DB) *int {
	t.Helper()
	inserted := new(int)
	err := gdb.Callback().Create().Before("gorm:create").Register("test:competing_cart", func(tx *gorm.DB) {
		c, ok := tx.Statement.Dest.(*domain.Cart)
		if !ok || *inserted > 0 {
			return
		}
		*inserted++
		now := time.Now()
		tx.AddError(tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO carts (user_id, store_id, status, active_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			c.UserID, c.StoreID, domain.CartActive, *c.ActiveKey, now, now,
		).Error)
	})
	require.NoError(t, err)
	return inserted
}

func TestGetOrCreateActiveReportsLostRace(t *testing.T) {
	gdb := dbtest.New(t)
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")
	inserted := insertCompetingCart(t, gdb)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		_, err := GetOrCreateActive(tx, customer.ID, store.ID)
		return err
	})
	assert.Equal(t, 1, *inserted)
	assert.ErrorIs(t, err, errCartRace)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestAddItemRetriesLostCartRace(t *testing.T) {
	gdb := dbtest.New(t)
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")
	product := dbtest.Product(t, gdb, store.ID, "Mug", "5.00")
	inserted := insertCompetingCart(t, gdb)

	item, err := NewManager(gdb).AddItem(context.Background(), customer.ID, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, *inserted)
	assert.Equal(t, 2, item.Quantity)

	var carts int64
	require.NoError(t, gdb.Model(&domain.Cart{}).Where("user_id = ? AND status = ?", customer.ID, domain.CartActive).Count(&carts).Error)
	assert.Equal(t, int64(1), carts)
}

func TestAddItemDoesNotRetryOtherCreateErrors(t *testing.T) {
	gdb := dbtest.New(t)
	customer := dbtest.Customer(t, gdb)
	_, store := dbtest.Seller(t, gdb, "")
	product := dbtest.Product(t, gdb, store.ID, "Mug", "5.00")

	diskFull := errors.New("disk full")
	attempts := 0
	require.NoError(t, gdb.Callback().Create().Before("gorm:create").Register("test:failing_cart", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*domain.Cart); ok {
			attempts++
			tx.AddError(diskFull)
		}
	}))

	_, err := NewManager(gdb).AddItem(context.Background(), customer.ID, product.ID, 1)
	assert.ErrorIs(t, err, diskFull)
	assert.NotErrorIs(t, err, errCartRace)
	assert.Equal(t, 1, attempts)
}
