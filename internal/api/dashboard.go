package api

import (
	"net/http" // HTTP status codes

	"ecomx/internal/dashboard" // Seller counters

	"github.com/gin-gonic/gin" // Gin web framework
)

// SellerDashboardHandler returns the seller's running counters
func SellerDashboardHandler(agg *dashboard.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		counters, err := agg.Counters(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "Dashboard not found")
			return
		}
		c.JSON(http.StatusOK, counters)
	}
}
