package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort         string        // Application port
	DBUser          string        // Database user
	DBPassword      string        // Database password
	DBHost          string        // Database host
	DBPort          string        // Database port
	DBName          string        // Database name
	JWTSecret       string        // JWT secret key
	JWTCookieName   string        // Cookie carrying the access token
	RedisAddr       string        // Redis server address
	RedisPass       string        // Redis password
	RedisDB         int           // Redis database number
	IsProd          bool          // Is production environment
	CORSOrigins     []string      // Allowed CORS origins
	TwilioSID       string        // Twilio account SID (media basic-auth user)
	TwilioToken     string        // Twilio auth token (media basic-auth password, webhook signatures)
	PublicBaseURL   string        // Scheme and host the webhook provider posts to
	GeminiAPIKey    string        // Text generation API key
	GeminiModel     string        // Text generation model
	CloudinaryURL   string        // Cloudinary credentials, empty for local storage
	MediaDir        string        // Local object store root
	MediaBaseURL    string        // Public URL prefix for the local object store
	MediaTimeout    time.Duration // Timeout for one media download and upload
	AITimeout       time.Duration // Timeout for one text generation call
	SummaryCacheTTL time.Duration // Seller summary cache TTL
	OrderTotalMode  string        // "quantity" or "unit"
	Tracing         string        // "stdout" enables the stdout span exporter
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:         getEnv("APP_PORT", "8080"),                             // Application port
		DBUser:          os.Getenv("DB_USER"),                                   // Database user
		DBPassword:      os.Getenv("DB_PASSWORD"),                               // Database password
		DBHost:          getEnv("DB_HOST", "127.0.0.1"),                         // Database host
		DBPort:          getEnv("DB_PORT", "3306"),                              // Database port
		DBName:          os.Getenv("DB_NAME"),                                   // Database name
		JWTSecret:       os.Getenv("JWT_SECRET"),                                // JWT secret key
		JWTCookieName:   getEnv("JWT_COOKIE_NAME", "access_token"),              // Access token cookie
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),                 // Redis server address
		RedisPass:       os.Getenv("REDIS_PASS"),                                // Redis password
		RedisDB:         redisDB,                                                // Redis database number
		IsProd:          os.Getenv("IS_PROD") == "true",                         // Is production environment
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),                 // Allowed origins
		TwilioSID:       os.Getenv("TWILIO_ACCOUNT_SID"),                        // Twilio SID
		TwilioToken:     os.Getenv("TWILIO_AUTH_TOKEN"),                         // Twilio token
		PublicBaseURL:   os.Getenv("PUBLIC_BASE_URL"),                           // Public webhook base URL
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),                            // Gemini key
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash-lite"),        // Gemini model
		CloudinaryURL:   os.Getenv("CLOUDINARY_URL"),                            // Cloudinary credentials
		MediaDir:        getEnv("MEDIA_DIR", "./uploads"),                       // Local media root
		MediaBaseURL:    getEnv("MEDIA_BASE_URL", "/uploads"),                   // Local media URL prefix
		MediaTimeout:    getDuration("MEDIA_TIMEOUT", 20*time.Second),           // Media timeout
		AITimeout:       getDuration("AI_TIMEOUT", 15*time.Second),              // AI timeout
		SummaryCacheTTL: getDuration("SUMMARY_CACHE_TTL", 60*time.Second),       // Summary cache TTL
		OrderTotalMode:  getEnv("ORDER_TOTAL_MODE", "quantity"),                 // Order total policy
		Tracing:         os.Getenv("TRACING"),                                   // Tracing exporter
	}
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// getEnv returns the variable or a fallback when it is unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration parses a Go duration ("15s") or falls back
func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

// splitList splits a comma separated list, dropping blanks
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
