package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/melibackend/retail-dashboard/internal/middleware"
	"github.com/melibackend/retail-dashboard/internal/models"
	"github.com/melibackend/retail-dashboard/internal/pos"
)

const serviceName = "retail-dashboard"

// Version is set at build time
var Version = "dev"

// HealthHandler handles health check requests
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Version:   Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// AdminHandler serves operator endpoints
type AdminHandler struct {
	rateLimiter *middleware.RateLimiter
	register    *pos.Register
}

// NewAdminHandler creates a new admin handler; either dependency may be nil
func NewAdminHandler(rateLimiter *middleware.RateLimiter, register *pos.Register) *AdminHandler {
	return &AdminHandler{rateLimiter: rateLimiter, register: register}
}

// GetRateLimitStatus handles GET /api/v1/admin/rate-limit/status
func (h *AdminHandler) GetRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Getting rate limit status", "remote_addr", r.RemoteAddr)

	if h.rateLimiter == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "rate_limiter_unavailable", "Rate limiter not available", nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, h.rateLimiter.GetRateLimitStats())
}

// ResetRateLimits handles POST /api/v1/admin/rate-limit/reset
func (h *AdminHandler) ResetRateLimits(w http.ResponseWriter, r *http.Request) {
	slog.Info("Resetting rate limits", "remote_addr", r.RemoteAddr)

	if h.rateLimiter == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "rate_limiter_unavailable", "Rate limiter not available", nil)
		return
	}

	h.rateLimiter.ResetRateLimits()

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message":   "Rate limits reset successfully",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetCheckoutDedupe handles GET /api/v1/admin/checkout-dedupe
func (h *AdminHandler) GetCheckoutDedupe(w http.ResponseWriter, r *http.Request) {
	if h.register == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "register_unavailable", "Register not available", nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, h.register.DedupeStats())
}
