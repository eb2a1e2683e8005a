package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"regexp"   // Regular expressions
	"strings"  // String manipulation

	"ecomx/internal/cart"   // Active cart creation
	"ecomx/internal/domain" // Importing domain models
	"ecomx/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Store identifiers
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Username    string `json:"username" binding:"required"` // Username must be provided
	Password    string `json:"password" binding:"required"` // Password must be provided
	Email       string `json:"email"`                       // Contact email
	FullName    string `json:"full_name"`                   // Display name
	UserType    string `json:"user_type"`                   // customer (default) or seller
	PhoneNumber string `json:"phone_number"`                // WhatsApp number, sellers only
	StoreName   string `json:"store_name"`                  // Creates the seller's store
	StoreID     string `json:"store_id"`                    // Store a customer signs up through
}

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AuthResponse carries the issued token
type AuthResponse struct {
	Token    string `json:"token"`     // JWT token
	UserID   uint   `json:"user_id"`   // Authenticated user
	UserType string `json:"user_type"` // customer or seller
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`) // Letters, digits, underscore, dot

// isValidUsername checks the username characters
func isValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// isValidPassword checks if the password length is between 8 and 72 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 72 // bcrypt ignores bytes past 72
}

// RegisterHandler creates a user. Sellers get a dashboard and, with
// store_name, a store. Customers with store_id join that store with an open cart.
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Validate username and password
		if !isValidUsername(req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username may contain letters, digits, '_' and '.' only"})
			return
		}
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-72 characters"})
			return
		}
		if req.UserType == "" {
			req.UserType = domain.UserTypeCustomer // Customers by default
		}
		if req.UserType != domain.UserTypeCustomer && req.UserType != domain.UserTypeSeller {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_type must be customer or seller"})
			return
		}
		// Resolve the store a customer signs up through
		var storeID uuid.UUID
		if req.StoreID != "" && req.UserType == domain.UserTypeCustomer {
			id, err := uuid.Parse(req.StoreID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store_id"})
				return
			}
			storeID = id
		}
		// Hash the password
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{
			Username: strings.ToLower(req.Username), // Lowercase username to ensure uniqueness
			Email:    req.Email,
			FullName: req.FullName,
			Password: string(hash),
			UserType: req.UserType,
		}
		if phone := strings.TrimSpace(req.PhoneNumber); phone != "" {
			user.PhoneNumber = &phone
		}
		var store *domain.Store // Store created or joined, if any
		err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			// Pre-check for a friendly duplicate message
			var taken int64
			q := tx.Model(&domain.User{}).Where("username = ?", user.Username)
			if user.PhoneNumber != nil {
				q = q.Or("phone_number = ?", *user.PhoneNumber)
			}
			if err := q.Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return domain.ErrConflict
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			if user.IsSeller() {
				if err := tx.Create(&domain.Dashboard{OwnerID: user.ID}).Error; err != nil {
					return err
				}
				if name := strings.TrimSpace(req.StoreName); name != "" {
					store = &domain.Store{OwnerID: user.ID, Name: name}
					return tx.Create(store).Error
				}
				return nil
			}
			if storeID == uuid.Nil {
				return nil
			}
			store = &domain.Store{}
			if err := tx.First(store, "id = ?", storeID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrNotFound
				}
				return err
			}
			if err := tx.Model(store).Association("Customers").Append(&user); err != nil {
				return err
			}
			_, err := cart.GetOrCreateActive(tx, user.ID, store.ID)
			return err
		})
		if errors.Is(err, domain.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or phone number already exists"})
			return
		} else if err != nil {
			respondError(c, err, "Store not found")
			return
		}
		fields := logrus.Fields{"user_id": user.ID, "user_type": user.UserType}
		if store != nil {
			fields["store_id"] = store.ID
		}
		logrus.WithFields(fields).Info("User registered")
		resp := gin.H{"message": "User registered successfully", "user_id": user.ID}
		if store != nil {
			resp["store_id"] = store.ID
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// LoginHandler authenticates a user, returns a JWT and sets it as an HttpOnly cookie
func LoginHandler(db *gorm.DB, jwtSecret, cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Where("username = ?", strings.ToLower(req.Username)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.UserType, jwtSecret) // Generate JWT token
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, token, int(utils.TokenTTL.Seconds()), "/", "", secure, true)
		logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("User logged in")
		c.JSON(http.StatusOK, AuthResponse{Token: token, UserID: user.ID, UserType: user.UserType})
	}
}

// LogoutHandler clears the access token cookie
func LogoutHandler(cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, "", -1, "/", "", secure, true) // Expire the cookie
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
