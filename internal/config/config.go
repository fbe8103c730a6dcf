package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// Logging
	LogLevel  string
	LogFormat string

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort            string
	ServiceApiPort     string
	AppURL             string
	CorsAllowedOrigins []string

	// Access
	AdminEmails []string

	// Stripe
	StripeSecretKey          string
	StripeWebhookSecret      string
	StripePriceProfessional  string
	StripePriceEnterprise    string
	StripeWebhookTolerance   time.Duration
	DefaultPlan              string
	OverdueSweepCronSpec     string
	DefaultPaymentTermsDays  int
	DefaultCurrency          string
	DefaultInvoicePrefix     string
	InvoiceArchivePresignTTL time.Duration

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	SmtpFromName    string
	MockServices    bool   // store outgoing mail in Redis instead of sending
	LogEmailsPath   string // also append outgoing mail to this file

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	AwsS3Endpoint      string // optional, for S3-compatible stores

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "simply_invoicing")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.AppURL = strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/")
	cfg.CorsAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))
	cfg.AdminEmails = splitList(getEnv("ADMIN_EMAILS", ""))

	cfg.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", "")
	cfg.StripeWebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", "")
	cfg.StripePriceProfessional = getEnv("STRIPE_PRICE_PROFESSIONAL", "")
	cfg.StripePriceEnterprise = getEnv("STRIPE_PRICE_ENTERPRISE", "")
	cfg.DefaultPlan = getEnv("DEFAULT_PLAN", "basic")
	cfg.OverdueSweepCronSpec = getEnv("OVERDUE_SWEEP_CRON", "@every 1h")
	cfg.DefaultCurrency = getEnv("DEFAULT_CURRENCY", "USD")
	cfg.DefaultInvoicePrefix = getEnv("DEFAULT_INVOICE_PREFIX", "INV")

	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "invoices@simplyinvoicing.example.com")
	cfg.SmtpFromName = getEnv("SMTP_FROM_NAME", "Simply Invoicing")
	cfg.MockServices = getEnv("MOCK_SERVICES", "") == "true"
	cfg.LogEmailsPath = getEnv("LOG_EMAILS", "")

	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.AwsS3Endpoint = getEnv("AWS_S3_ENDPOINT", "")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	toleranceSeconds, err := strconv.ParseInt(getEnv("STRIPE_WEBHOOK_TOLERANCE_SECONDS", "300"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STRIPE_WEBHOOK_TOLERANCE_SECONDS: %w", err)
	}
	cfg.StripeWebhookTolerance = time.Duration(toleranceSeconds) * time.Second

	presignMinutes, err := strconv.ParseInt(getEnv("INVOICE_ARCHIVE_URL_TTL_MINUTES", "15"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid INVOICE_ARCHIVE_URL_TTL_MINUTES: %w", err)
	}
	cfg.InvoiceArchivePresignTTL = time.Duration(presignMinutes) * time.Minute

	cfg.DefaultPaymentTermsDays, err = strconv.Atoi(getEnv("DEFAULT_PAYMENT_TERMS_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PAYMENT_TERMS_DAYS: %w", err)
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}

// IsAdminEmail reports whether email is on the configured admin allow-list.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if strings.ToLower(admin) == email {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
