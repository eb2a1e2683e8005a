package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ecomx/internal/domain"
)

var seq atomic.Int64

// Customer creates a customer user
func Customer(t *testing.T, gdb *gorm.DB) *domain.User {
	t.Helper()
	n := seq.Add(1)
	u := &domain.User{
		Username: fmt.Sprintf("customer%d", n),
		FullName: fmt.Sprintf("Customer %d", n),
		Password: "x",
		UserType: domain.UserTypeCustomer,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// Seller creates a seller with a phone number, a dashboard and a store
func Seller(t *testing.T, gdb *gorm.DB, phone string) (*domain.User, *domain.Store) {
	t.Helper()
	n := seq.Add(1)
	u := &domain.User{
		Username: fmt.Sprintf("seller%d", n),
		FullName: fmt.Sprintf("Seller %d", n),
		Password: "x",
		UserType: domain.UserTypeSeller,
	}
	if phone != "" {
		u.PhoneNumber = &phone
	}
	require.NoError(t, gdb.Create(u).Error)
	require.NoError(t, gdb.Create(&domain.Dashboard{OwnerID: u.ID}).Error)
	s := &domain.Store{OwnerID: u.ID, Name: fmt.Sprintf("Store %d", n)}
	require.NoError(t, gdb.Create(s).Error)
	return u, s
}

// Product creates a product with the given price in a store
func Product(t *testing.T, gdb *gorm.DB, storeID uuid.UUID, name, price string) *domain.Product {
	t.Helper()
	p := &domain.Product{
		StoreID: storeID,
		Name:    name,
		Price:   decimal.RequireFromString(price),
		Stock:   10,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}
