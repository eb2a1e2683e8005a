package main

import (
	"ecomx/internal/config" // Configuration
	"ecomx/internal/db"     // Database schema
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	db.Migrate(cfg.DSN())      // Create or update every table
}
