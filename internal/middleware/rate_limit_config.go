package middleware

import (
	"log/slog"
	"strings"

	"github.com/melibackend/retail-dashboard/internal/config"
)

// ParseRateLimitConfig parses rate limiting configuration from the config struct
func ParseRateLimitConfig(cfg *config.Config) RateLimitConfig {
	rateLimitConfig := RateLimitConfig{
		Enabled:                config.ParseBool(cfg.RateLimitEnabled, true),
		Type:                   parseRateLimitType(cfg.RateLimitType),
		RequestsPerMinute:      config.ParseInt(cfg.RateLimitRequestsPerMinute, 300),
		Burst:                  config.ParseInt(cfg.RateLimitBurst, 50),
		AdminRequestsPerMinute: config.ParseInt(cfg.RateLimitAdminRequestsPerMinute, 30),
	}

	if rateLimitConfig.RequestsPerMinute <= 0 {
		slog.Warn("Invalid rate limit requests per minute, using default",
			"configured", cfg.RateLimitRequestsPerMinute, "default", 300)
		rateLimitConfig.RequestsPerMinute = 300
	}

	if rateLimitConfig.Burst <= 0 {
		slog.Warn("Invalid rate limit burst, using default",
			"configured", cfg.RateLimitBurst, "default", 50)
		rateLimitConfig.Burst = 50
	}

	if rateLimitConfig.AdminRequestsPerMinute <= 0 {
		slog.Warn("Invalid admin rate limit requests per minute, using default",
			"configured", cfg.RateLimitAdminRequestsPerMinute, "default", 30)
		rateLimitConfig.AdminRequestsPerMinute = 30
	}

	slog.Info("Rate limiting configuration parsed",
		"enabled", rateLimitConfig.Enabled,
		"type", rateLimitConfig.Type,
		"requests_per_minute", rateLimitConfig.RequestsPerMinute,
		"burst", rateLimitConfig.Burst,
		"admin_requests_per_minute", rateLimitConfig.AdminRequestsPerMinute)

	return rateLimitConfig
}

// parseRateLimitType parses the rate limit type with validation
func parseRateLimitType(value string) RateLimitType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "ip":
		return RateLimitTypeIP
	case "global":
		return RateLimitTypeGlobal
	case "both":
		return RateLimitTypeBoth
	default:
		slog.Warn("Invalid rate limit type, using default",
			"value", value, "default", "ip")
		return RateLimitTypeIP
	}
}
