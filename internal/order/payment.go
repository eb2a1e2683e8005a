package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecomx/internal/domain"
)

// Payments records payment rows against orders. No money moves here.
type Payments struct {
	db *gorm.DB
}

// NewPayments returns a Payments backed by db
func NewPayments(db *gorm.DB) *Payments {
	return &Payments{db: db}
}

// Record stores a pending payment for the buyer's order. An order holds at
// most one payment and a transaction id is used once.
func (p *Payments) Record(ctx context.Context, userID, orderID uint, transactionID, method string) (*domain.Payment, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, fmt.Errorf("transaction id is required: %w", domain.ErrValidation)
	}

	var payment domain.Payment
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", orderID, userID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
		} else if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&domain.Payment{}).
			Where("order_id = ? OR transaction_id = ?", orderID, transactionID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("payment for order %d or transaction %s exists: %w", orderID, transactionID, domain.ErrConflict)
		}

		payment = domain.Payment{
			OrderID:       order.ID,
			TransactionID: transactionID,
			PaymentMethod: method,
			Status:        domain.PaymentPending,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"order_id":       orderID,
		"payment_id":     payment.ID,
		"transaction_id": transactionID,
	}).Info("Payment recorded")
	return &payment, nil
}

// SetStatus lets the store owner settle a pending payment as success or failed
func (p *Payments) SetStatus(ctx context.Context, paymentID, sellerID uint, status string) (*domain.Payment, error) {
	if status != domain.PaymentSuccess && status != domain.PaymentFailed {
		return nil, fmt.Errorf("payment status must be success or failed: %w", domain.ErrValidation)
	}

	var payment domain.Payment
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Order").First(&payment, paymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("payment %d: %w", paymentID, domain.ErrNotFound)
		} else if err != nil {
			return err
		}
		if err := requireStoreOwner(tx, payment.Order.StoreID, sellerID); err != nil {
			return err
		}
		if payment.Status != domain.PaymentPending {
			return fmt.Errorf("payment %d is already %s: %w", paymentID, payment.Status, domain.ErrConflict)
		}
		payment.Status = status
		return tx.Model(&payment).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"seller_id":  sellerID,
		"status":     status,
	}).Info("Payment status changed")
	return &payment, nil
}
