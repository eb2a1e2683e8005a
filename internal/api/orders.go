package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"ecomx/internal/dashboard" // Order summaries
	"ecomx/internal/order"     // Order converter

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Store identifiers
	"github.com/sirupsen/logrus" // Logging library
)

// PlaceOrderRequest represents a checkout request
type PlaceOrderRequest struct {
	StoreID         string `json:"store_id"`         // Cart to check out, newest when empty
	PaymentMethod   string `json:"payment_method"`   // Free-form payment method
	ShippingAddress string `json:"shipping_address"` // Delivery address
}

// OrderStatusRequest represents a status change
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required"` // delivered or cancelled
}

// PlaceOrderHandler converts the user's active cart into an order
func PlaceOrderHandler(conv *order.Converter, agg *dashboard.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req PlaceOrderRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		in := order.PlaceOrderRequest{PaymentMethod: req.PaymentMethod, ShippingAddress: req.ShippingAddress}
		if req.StoreID != "" {
			id, err := uuid.Parse(req.StoreID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store_id"})
				return
			}
			in.StoreID = &id
		}
		o, err := conv.PlaceOrder(c.Request.Context(), userID, in)
		if err != nil {
			respondError(c, err, "No active cart found")
			return
		}
		agg.Invalidate(c.Request.Context(), o.StoreID) // Summary now stale
		c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully!", "order_id": o.ID})
	}
}

// SellerSummaryHandler returns the order summary of the seller's store
func SellerSummaryHandler(agg *dashboard.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		s, err := agg.SellerSummary(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "Store not found")
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// OrderDetailHandler returns one of the user's orders with its lines
func OrderDetailHandler(agg *dashboard.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		orderID, ok := pathID(c, "id")
		if !ok {
			return
		}
		d, err := agg.OrderDetail(c.Request.Context(), orderID, userID)
		if err != nil {
			respondError(c, err, "Order not found")
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// UpdateOrderStatusHandler lets the store owner deliver or cancel a pending order
func UpdateOrderStatusHandler(conv *order.Converter, agg *dashboard.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		orderID, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req OrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		o, err := conv.UpdateStatus(c.Request.Context(), orderID, userID, req.Status)
		if err != nil {
			logrus.WithFields(logrus.Fields{"order_id": orderID, "status": req.Status, "error": err.Error()}).Warn("Order status change refused")
			respondError(c, err, "Order not found")
			return
		}
		agg.Invalidate(c.Request.Context(), o.StoreID)
		c.JSON(http.StatusOK, o)
	}
}

// pathID parses a positive integer path parameter
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
