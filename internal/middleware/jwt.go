package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"ecomx/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// JWTAuthMiddleware validates the access token from the Authorization header
// or, when the header is absent, from the access token cookie
func JWTAuthMiddleware(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""                             // Token to validate
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		if authHeader != "" {
			// A present header must be a Bearer token
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
				return
			}
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		} else if cookie, err := c.Cookie(cookieName); err == nil {
			tokenStr = cookie // Fall back to the cookie set at login
		}
		// Reject requests without any token
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided"})
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set("userID", claims.UserID)     // Store userID in context
		c.Set("userType", claims.UserType) // Store user type in context
		c.Next()                           // Proceed to the next handler
	}
}
