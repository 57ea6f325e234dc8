package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
)

// TokenCookie is the cookie the dashboard front end stores its session token in
const TokenCookie = "dashboard_token"

// AuthMiddleware requires a caller token, from the Authorization bearer
// header or the dashboard cookie, and forwards it to backend calls made
// with the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			slog.Warn("Authentication failed: missing token", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication token required", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(client.WithToken(r.Context(), token)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// AdminAuthMiddleware guards operator endpoints with the X-Admin-Key header.
// With no keys configured every admin request is refused.
func AdminAuthMiddleware(adminKeys []string) func(http.Handler) http.Handler {
	keys := make([]string, 0, len(adminKeys))
	for _, k := range adminKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-Admin-Key")
			if apiKey == "" {
				slog.Warn("Admin authentication failed: missing key", "remote_addr", r.RemoteAddr)
				writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Admin key required", nil)
				return
			}

			if !containsKey(keys, apiKey) {
				slog.Warn("Admin authentication failed: invalid key", "remote_addr", r.RemoteAddr)
				writeErrorResponse(w, http.StatusForbidden, "forbidden", "Admin access required", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsKey(keys []string, candidate string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}

// CORS sets CORS headers and answers preflight requests
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Key, Idempotency-Key")
			if origin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, fields map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    code,
		Message: message,
		Fields:  fields,
	})
}
