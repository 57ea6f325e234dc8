package telemetry

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// TelemetryMiddleware records request metrics for every routed request
type TelemetryMiddleware struct {
	telemetry *DashboardTelemetry
}

// NewTelemetryMiddleware creates a new telemetry middleware
func NewTelemetryMiddleware(telemetry *DashboardTelemetry) *TelemetryMiddleware {
	return &TelemetryMiddleware{telemetry: telemetry}
}

// Middleware returns the HTTP middleware function. It must run inside a mux
// router so the route template can be used as the endpoint label.
func (tm *TelemetryMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		// Handlers attach low-cardinality labels through this holder
		labels := &requestLabels{}
		r = r.WithContext(context.WithValue(r.Context(), labelsKey{}, labels))

		next.ServeHTTP(wrapper, r)

		clientIP := getClientIP(r)
		metrics := RequestMetrics{
			Method:       r.Method,
			Endpoint:     endpointFromRequest(r),
			StatusCode:   wrapper.statusCode,
			Duration:     time.Since(start),
			ClientIP:     clientIP,
			ClientIPType: NormalizeClientIP(clientIP),
			StoreID:      labels.storeID,
		}

		ctx := r.Context()
		if wrapper.statusCode >= 400 {
			tm.telemetry.RegisterRequestError(ctx, metrics)
		} else {
			tm.telemetry.RegisterRequestReceived(ctx, metrics)
		}
		tm.telemetry.RegisterRequestDuration(ctx, metrics)
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(data)
}

func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type labelsKey struct{}

type requestLabels struct {
	storeID string
}

// SetStoreID labels the current request's metrics with a store. Only pass
// ids the backend returned; request input would let callers mint series.
func SetStoreID(ctx context.Context, storeID string) {
	if labels, ok := ctx.Value(labelsKey{}).(*requestLabels); ok {
		labels.storeID = storeID
	}
}

// endpointFromRequest returns the matched route template
func endpointFromRequest(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// getClientIP returns the socket peer. Forwarding headers are resolved
// against the trusted proxy list before requests reach the router.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
