package api

import (
	"net/http" // HTTP status codes

	"ecomx/internal/order" // Payment records

	"github.com/gin-gonic/gin" // Gin web framework
)

// PaymentRequest records a payment for an order
type PaymentRequest struct {
	OrderID       uint   `json:"order_id" binding:"required"`       // Paid order
	TransactionID string `json:"transaction_id" binding:"required"` // Provider reference
	PaymentMethod string `json:"payment_method"`                    // Free-form method
}

// PaymentStatusRequest settles a payment
type PaymentStatusRequest struct {
	Status string `json:"status" binding:"required"` // success or failed
}

// RecordPaymentHandler stores a pending payment for the user's order
func RecordPaymentHandler(payments *order.Payments) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		p, err := payments.Record(c.Request.Context(), userID, req.OrderID, req.TransactionID, req.PaymentMethod)
		if err != nil {
			respondError(c, err, "Order not found")
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// UpdatePaymentStatusHandler lets the store owner settle a payment
func UpdatePaymentStatusHandler(payments *order.Payments) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		paymentID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req PaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		p, err := payments.SetStatus(c.Request.Context(), paymentID, userID, req.Status)
		if err != nil {
			respondError(c, err, "Payment not found")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
