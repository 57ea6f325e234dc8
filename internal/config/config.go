package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/melibackend/retail-dashboard/internal/utils"
)

// Config holds all configuration for the dashboard server and CLI
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string

	// Backend API
	APIBaseURL                  string
	APIToken                    string
	APITimeout                  string
	ProductUpdateMethodOverride string

	// HTTP server
	CORSOrigin     string
	RequestTimeout string
	AdminAPIKeys   string
	TrustedProxies string

	// Rate limiting
	RateLimitEnabled                string
	RateLimitType                   string
	RateLimitRequestsPerMinute      string
	RateLimitBurst                  string
	RateLimitAdminRequestsPerMinute string

	// POS
	CheckoutDedupeTTL  string
	NATSURL            string
	NATSSalesSubject   string
	SalesFeedFile      string
	SalesFeedMaxEvents string

	// Telemetry
	MetricsExporter string
	MetricsPort     string
}

// LoadConfig loads configuration from a .env file and environment variables
// and configures the global logger.
func LoadConfig() *Config {
	config, envErr := Load()

	utils.SetupLogging(config.LogLevel, config.LogFormat)

	if envErr != nil {
		slog.Debug("No .env file loaded, using system environment variables only", "error", envErr)
	} else {
		slog.Info("Successfully loaded .env file")
	}

	slog.Info("Configuration loaded",
		"port", config.Port,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"logFormat", config.LogFormat,
		"apiBaseURL", config.APIBaseURL,
		"apiTokenSet", config.APIToken != "",
		"apiTimeout", config.APITimeout,
		"productUpdateMethodOverride", config.ProductUpdateMethodOverride,
		"rateLimitEnabled", config.RateLimitEnabled,
		"rateLimitType", config.RateLimitType,
		"trustedProxies", config.TrustedProxies,
		"checkoutDedupeTTL", config.CheckoutDedupeTTL,
		"natsURL", config.NATSURL,
		"salesFeedFile", config.SalesFeedFile,
		"metricsExporter", config.MetricsExporter)

	return config
}

// Load reads configuration from a .env file and environment variables
// without touching the logger. The .env error is returned for reporting only.
func Load() (*Config, error) {
	// .env never overrides variables already set in the environment
	envErr := godotenv.Load()

	return &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvWithDefault("LOG_FORMAT", "text"),

		APIBaseURL:                  getEnvWithDefault("API_BASE_URL", "http://localhost:8000/api"),
		APIToken:                    getEnvWithDefault("API_TOKEN", ""),
		APITimeout:                  getEnvWithDefault("API_TIMEOUT", "30s"),
		ProductUpdateMethodOverride: getEnvWithDefault("PRODUCT_UPDATE_METHOD_OVERRIDE", "true"),

		CORSOrigin:     getEnvWithDefault("CORS_ORIGIN", "*"),
		RequestTimeout: getEnvWithDefault("REQUEST_TIMEOUT", "60s"),
		AdminAPIKeys:   getEnvWithDefault("ADMIN_API_KEYS", ""),
		TrustedProxies: getEnvWithDefault("TRUSTED_PROXIES", ""),

		RateLimitEnabled:                getEnvWithDefault("RATE_LIMIT_ENABLED", "true"),
		RateLimitType:                   getEnvWithDefault("RATE_LIMIT_TYPE", "ip"),
		RateLimitRequestsPerMinute:      getEnvWithDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", "300"),
		RateLimitBurst:                  getEnvWithDefault("RATE_LIMIT_BURST", "50"),
		RateLimitAdminRequestsPerMinute: getEnvWithDefault("RATE_LIMIT_ADMIN_REQUESTS_PER_MINUTE", "30"),

		CheckoutDedupeTTL:  getEnvWithDefault("CHECKOUT_DEDUPE_TTL", "10m"),
		NATSURL:            getEnvWithDefault("NATS_URL", ""),
		NATSSalesSubject:   getEnvWithDefault("NATS_SALES_SUBJECT", "pos.sale.completed"),
		SalesFeedFile:      getEnvWithDefault("SALES_FEED_FILE", ""),
		SalesFeedMaxEvents: getEnvWithDefault("SALES_FEED_MAX_EVENTS", "1000"),

		MetricsExporter: getEnvWithDefault("METRICS_EXPORTER", "prometheus"),
		MetricsPort:     getEnvWithDefault("METRICS_PORT", "9080"),
	}, envErr
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MethodOverride reports whether product updates are tunneled through POST
func (c *Config) MethodOverride() bool {
	return ParseBool(c.ProductUpdateMethodOverride, true)
}

// AdminKeys returns the comma separated ADMIN_API_KEYS list
func (c *Config) AdminKeys() []string {
	var keys []string
	for _, k := range strings.Split(c.AdminAPIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ParseBool parses a string to bool with a default value
func ParseBool(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	case "false", "0", "no", "off", "disabled":
		return false
	default:
		slog.Warn("Invalid boolean value, using default",
			"value", value, "default", defaultValue)
		return defaultValue
	}
}

// ParseInt parses a string to int with a default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		slog.Warn("Invalid integer value, using default",
			"value", value, "default", defaultValue, "error", err)
		return defaultValue
	}
	return parsed
}

// ParseDuration parses a Go duration string with a default value
func ParseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		slog.Warn("Invalid duration value, using default",
			"value", value, "default", defaultValue.String(), "error", err)
		return defaultValue
	}
	return parsed
}
