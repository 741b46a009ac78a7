package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Twilio inbound/outbound SMS
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Shopify catalog
	ShopifyShopURL       string
	ShopifyAccessToken   string
	ShopifyAPIVersion    string
	ShopifyLookupTimeout time.Duration
	ShopifyOrderWindow   int

	// SMS conversation flow
	SchedulerPhone   string
	DefaultState     string
	ConversationTTL  time.Duration
	TurnLockTTL      time.Duration
	AdminJWTSecret   string
	TurnLockDisabled bool

	// Redis (per-phone turn serialization)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AWS S3 (pickup photo mirroring)
	AWSRegion           string
	AWSEndpointOverride string
	UploadsBucket       string

	// SendGrid scheduler notifications
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SchedulerEmail    string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		ShopifyShopURL:       getEnv("SHOPIFY_SHOP_URL", ""),
		ShopifyAccessToken:   getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		ShopifyAPIVersion:    getEnv("SHOPIFY_API_VERSION", "2024-01"),
		ShopifyLookupTimeout: getEnvAsDuration("SHOPIFY_LOOKUP_TIMEOUT", 5*time.Second),
		ShopifyOrderWindow:   getEnvAsInt("SHOPIFY_ORDER_WINDOW", 50),

		SchedulerPhone:   getEnv("SCHEDULER_PHONE", ""),
		DefaultState:     getEnv("DEFAULT_STATE", "IN"),
		ConversationTTL:  getEnvAsDuration("CONVERSATION_TTL", 24*time.Hour),
		TurnLockTTL:      getEnvAsDuration("TURN_LOCK_TTL", 30*time.Second),
		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
		TurnLockDisabled: getEnvAsBool("TURN_LOCK_DISABLED", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		UploadsBucket:       getEnv("UPLOADS_BUCKET", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Consigned By Design"),
		SchedulerEmail:    getEnv("SCHEDULER_EMAIL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
