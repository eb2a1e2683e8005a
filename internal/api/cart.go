package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"ecomx/internal/cart" // Cart manager

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/google/uuid"   // Store identifiers
)

// CartItemRequest represents an add or remove request
type CartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"` // Product to add or remove
	Quantity  int  `json:"quantity"`                      // Defaults to 1
}

// AddToCartHandler adds a product to the user's active cart for the product's store
func AddToCartHandler(mgr *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req CartItemRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1 // Default quantity
		}
		item, err := mgr.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
		if err != nil {
			respondError(c, err, "Product not found")
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

// RemoveFromCartHandler removes a product from the user's active cart.
// product_id is read from the JSON body or the query string.
func RemoveFromCartHandler(mgr *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req CartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			id, perr := strconv.ParseUint(c.Query("product_id"), 10, 64)
			if perr != nil || id == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
				return
			}
			req.ProductID = uint(id)
		}
		if err := mgr.RemoveItem(c.Request.Context(), userID, req.ProductID); err != nil {
			respondError(c, err, "Product not in cart")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product removed from cart!"})
	}
}

// ViewCartHandler lists the user's active cart in the store given by ?store_id=
func ViewCartHandler(mgr *cart.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		storeID, err := uuid.Parse(c.Query("store_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A valid store_id is required"})
			return
		}
		items, err := mgr.ViewCart(c.Request.Context(), userID, storeID)
		if err != nil {
			respondError(c, err, "Store not found")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}
