package middleware

import (
	"net/http" // HTTP status codes

	"ecomx/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// SellerOnlyMiddleware checks the user's type from the database on each request
func SellerOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Select("id", "user_type").First(&user, userID).Error; err != nil {
			// If user not found or any error, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Seller access required"})
			return
		}
		// A token issued before a type change must not grant seller access
		if !user.IsSeller() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Seller access required"})
			return
		}
		c.Next() // Seller, proceed to the next handler
	}
}
