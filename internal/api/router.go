package api

import (
	"net/http" // HTTP status codes
	"time"     // CORS max age

	"ecomx/internal/cart"       // Cart manager
	"ecomx/internal/chat"       // Command dispatcher
	"ecomx/internal/config"     // Application configuration
	"ecomx/internal/dashboard"  // Seller views
	"ecomx/internal/middleware" // Auth middleware
	"ecomx/internal/order"      // Orders and payments

	"github.com/gin-contrib/cors" // CORS middleware
	"github.com/gin-gonic/gin"    // Gin web framework
	"gorm.io/gorm"                // GORM ORM library
)

// Services are the collaborators the HTTP handlers call
type Services struct {
	DB        *gorm.DB
	Carts     *cart.Manager
	Orders    *order.Converter
	Payments  *order.Payments
	Dashboard *dashboard.Aggregator
	Chat      *chat.Dispatcher
}

// NewRouter mounts every route under /api/v1. serveMedia exposes the local
// object store directory at cfg.MediaBaseURL.
func NewRouter(cfg *config.Config, s Services, serveMedia bool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if serveMedia {
		r.Static(cfg.MediaBaseURL, cfg.MediaDir) // Local object store
	}

	v1 := r.Group("/api/v1")

	// Auth routes
	v1.POST("/auth/register", RegisterHandler(s.DB))
	v1.POST("/auth/login", LoginHandler(s.DB, cfg.JWTSecret, cfg.JWTCookieName, cfg.IsProd))
	v1.POST("/auth/logout", LogoutHandler(cfg.JWTCookieName, cfg.IsProd))

	// WhatsApp webhook, identified by sender phone number and signed by the provider
	webhook := []gin.HandlerFunc{WhatsAppHandler(s.Chat)}
	if cfg.TwilioToken != "" {
		webhook = append([]gin.HandlerFunc{middleware.TwilioSignatureMiddleware(cfg.TwilioToken, cfg.PublicBaseURL)}, webhook...)
	}
	v1.POST("/whatsapp_bot/message", webhook...)

	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTCookieName)
	seller := middleware.SellerOnlyMiddleware(s.DB)

	// Cart and order routes (protected by JWT)
	orders := v1.Group("/orders", auth)
	orders.POST("/cart/add", AddToCartHandler(s.Carts))
	orders.DELETE("/cart/add", RemoveFromCartHandler(s.Carts))
	orders.GET("/cart", ViewCartHandler(s.Carts))
	orders.POST("/create", PlaceOrderHandler(s.Orders, s.Dashboard))
	orders.GET("", seller, SellerSummaryHandler(s.Dashboard))
	orders.GET("/:id", OrderDetailHandler(s.Dashboard))
	orders.PATCH("/:id/status", seller, UpdateOrderStatusHandler(s.Orders, s.Dashboard))

	// Payment routes
	payments := v1.Group("/payments", auth)
	payments.POST("", RecordPaymentHandler(s.Payments))
	payments.PATCH("/:id/status", seller, UpdatePaymentStatusHandler(s.Payments))

	// Seller dashboard
	v1.GET("/seller_dashboard", auth, seller, SellerDashboardHandler(s.Dashboard))

	return r
}
