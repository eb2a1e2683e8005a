package main

import (
	"context" // context package is needed for Redis operations
	"time"    // Shutdown deadline

	"ecomx/internal/ai"        // Text generation client
	"ecomx/internal/api"       // HTTP handlers and routes
	"ecomx/internal/cart"      // Cart manager
	"ecomx/internal/catalog"   // Product and category repository
	"ecomx/internal/chat"      // WhatsApp command dispatcher
	"ecomx/internal/config"    // Configuration
	"ecomx/internal/dashboard" // Seller views
	"ecomx/internal/db"        // Database connection
	"ecomx/internal/media"     // Image ingestion
	"ecomx/internal/order"     // Orders and payments
	"ecomx/internal/telemetry" // Tracing

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	shutdown, err := telemetry.Setup(cfg.Tracing)
	if err != nil {
		logrus.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("Tracer shutdown failed")
		}
	}()

	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Image storage: Cloudinary when configured, local directory otherwise
	var store media.ObjectStore
	serveMedia := cfg.CloudinaryURL == ""
	if serveMedia {
		store = media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	} else {
		cld, err := media.NewCloudinaryStore(cfg.CloudinaryURL, "products")
		if err != nil {
			logrus.Fatalf("failed to configure Cloudinary: %v", err)
		}
		store = cld
	}

	catalogRepo := catalog.NewGormRepository(gdb)
	fetcher := media.NewHTTPFetcher(telemetry.HTTPClient(cfg.MediaTimeout), cfg.TwilioSID, cfg.TwilioToken)
	aggregator := dashboard.NewAggregator(gdb, redisClient, cfg.SummaryCacheTTL)

	if cfg.TwilioToken == "" {
		logrus.Warn("TWILIO_AUTH_TOKEN not set, webhook signatures are not verified")
	}

	var generator ai.Generator // nil disables the ai command
	if cfg.GeminiAPIKey != "" {
		generator = ai.NewGeminiClient(telemetry.HTTPClient(cfg.AITimeout), cfg.GeminiAPIKey, cfg.GeminiModel, ai.DefaultBaseURL)
	} else {
		logrus.Warn("GEMINI_API_KEY not set, ai command disabled")
	}

	services := api.Services{
		DB:        gdb,
		Carts:     cart.NewManager(gdb),
		Orders:    order.NewConverter(gdb, order.ParseTotalMode(cfg.OrderTotalMode)),
		Payments:  order.NewPayments(gdb),
		Dashboard: aggregator,
		Chat: chat.NewDispatcher(chat.Deps{
			Catalog:   catalogRepo,
			Reports:   aggregator,
			AI:        generator,
			Media:     media.NewAttacher(fetcher, store, catalogRepo, cfg.MediaTimeout),
			AITimeout: cfg.AITimeout,
		}),
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(cfg, services, serveMedia)

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "total_mode": cfg.OrderTotalMode}).Info("Server running")
	if err := r.Run(":" + cfg.AppPort); err != nil {
		logrus.Errorf("server stopped: %v", err)
	}
}
