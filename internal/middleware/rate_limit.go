package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitType defines the type of rate limiting
type RateLimitType string

const (
	RateLimitTypeIP     RateLimitType = "ip"
	RateLimitTypeGlobal RateLimitType = "global"
	RateLimitTypeBoth   RateLimitType = "both"
)

// idleLimiterTTL is how long an unused limiter is kept
const idleLimiterTTL = 3 * time.Minute

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled                bool
	Type                   RateLimitType
	RequestsPerMinute      int
	Burst                  int
	AdminRequestsPerMinute int
}

// RateLimitInfo contains rate limit information for response headers
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
}

// RateLimitStats is the payload of the rate limit status endpoint
type RateLimitStats struct {
	Enabled                bool   `json:"enabled"`
	Type                   string `json:"type"`
	RequestsPerMinute      int    `json:"requests_per_minute"`
	Burst                  int    `json:"burst"`
	AdminRequestsPerMinute int    `json:"admin_requests_per_minute"`
	ActiveLimiters         int    `json:"active_limiters"`
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps token buckets per client IP and/or globally
type RateLimiter struct {
	config   RateLimitConfig
	limiters map[string]*limiterEntry
	mutex    sync.Mutex
	now      func() time.Time

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:      config,
		limiters:    make(map[string]*limiterEntry),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	rl.cleanupTicker = time.NewTicker(time.Minute)
	go rl.cleanupIdleLimiters()

	slog.Info("Rate limiter initialized",
		"enabled", config.Enabled,
		"type", config.Type,
		"requests_per_minute", config.RequestsPerMinute,
		"burst", config.Burst,
		"admin_requests_per_minute", config.AdminRequestsPerMinute)

	return rl
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.stopCleanup)
	})
}

func (rl *RateLimiter) cleanupIdleLimiters() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.mutex.Lock()
			now := rl.now()
			for key, entry := range rl.limiters {
				if now.Sub(entry.lastSeen) > idleLimiterTTL {
					delete(rl.limiters, key)
				}
			}
			rl.mutex.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// IsAllowed checks if a request is allowed based on rate limiting rules
func (rl *RateLimiter) IsAllowed(clientIP string, isAdmin bool) (bool, *RateLimitInfo) {
	if !rl.config.Enabled {
		return true, &RateLimitInfo{Limit: -1, Remaining: -1}
	}

	limit, burst, prefix := rl.config.RequestsPerMinute, rl.config.Burst, ""
	if isAdmin && rl.config.AdminRequestsPerMinute > 0 {
		limit, prefix = rl.config.AdminRequestsPerMinute, "admin|"
		if burst > limit {
			burst = limit
		}
	}
	if burst <= 0 {
		burst = 1
	}

	var keys []string
	switch rl.config.Type {
	case RateLimitTypeGlobal:
		keys = []string{prefix + "global"}
	case RateLimitTypeBoth:
		keys = []string{prefix + "ip:" + clientIP, prefix + "global"}
	default:
		keys = []string{prefix + "ip:" + clientIP}
	}

	now := rl.now()
	allowed := true
	var info *RateLimitInfo
	for _, key := range keys {
		ok, keyInfo := rl.take(key, limit, burst, now)
		allowed = allowed && ok
		// Report the most restrictive bucket
		if info == nil || keyInfo.Remaining < info.Remaining {
			info = keyInfo
		}
	}
	return allowed, info
}

// take consumes one token from the bucket under key
func (rl *RateLimiter) take(key string, limit, burst int, now time.Time) (bool, *RateLimitInfo) {
	perSecond := rate.Limit(float64(limit) / 60)

	rl.mutex.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(perSecond, burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	rl.mutex.Unlock()

	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)

	info := &RateLimitInfo{
		Limit:     limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}
	// ResetTime is when the next token becomes available
	if tokens < 1 && perSecond > 0 {
		wait := time.Duration((1 - tokens) * 60 / float64(limit) * float64(time.Second))
		info.ResetTime = now.Add(wait)
	} else {
		info.ResetTime = now
	}
	return allowed, info
}

// GetRateLimitStats returns current rate limiting statistics
func (rl *RateLimiter) GetRateLimitStats() RateLimitStats {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	return RateLimitStats{
		Enabled:                rl.config.Enabled,
		Type:                   string(rl.config.Type),
		RequestsPerMinute:      rl.config.RequestsPerMinute,
		Burst:                  rl.config.Burst,
		AdminRequestsPerMinute: rl.config.AdminRequestsPerMinute,
		ActiveLimiters:         len(rl.limiters),
	}
}

// ResetRateLimits drops every bucket
func (rl *RateLimiter) ResetRateLimits() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.limiters = make(map[string]*limiterEntry)
	slog.Info("Rate limits reset")
}

// RateLimitMiddleware creates a rate limiting middleware using an existing rate limiter
func RateLimitMiddleware(rateLimiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)
			isAdmin := strings.HasPrefix(r.URL.Path, "/api/v1/admin")

			allowed, info := rateLimiter.IsAllowed(clientIP, isAdmin)
			setRateLimitHeaders(w, info)

			if !allowed {
				slog.Warn("Rate limit exceeded",
					"client_ip", clientIP,
					"path", r.URL.Path,
					"method", r.Method,
					"is_admin", isAdmin,
					"limit", info.Limit,
					"reset_time", info.ResetTime.Format(time.RFC3339))

				writeRateLimitErrorResponse(w, info, rateLimiter.now())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP keys limits on the socket peer. RealIP, when mounted in
// front, has already replaced it with the address a trusted proxy reported.
func getClientIP(r *http.Request) string {
	return remoteHost(r.RemoteAddr)
}

// setRateLimitHeaders sets rate limit headers in the response
func setRateLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	if info.Limit < 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	if !info.ResetTime.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// writeRateLimitErrorResponse writes a rate limit exceeded error response
func writeRateLimitErrorResponse(w http.ResponseWriter, info *RateLimitInfo, now time.Time) {
	retryAfter := int(math.Ceil(info.ResetTime.Sub(now).Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	writeErrorResponse(w, http.StatusTooManyRequests, "rate_limit_exceeded",
		"Rate limit exceeded. Please try again later.",
		map[string][]string{
			"rate_limit":  {fmt.Sprintf("Exceeded %d requests per minute", info.Limit)},
			"retry_after": {fmt.Sprintf("Retry after %d seconds", retryAfter)},
		})
}
