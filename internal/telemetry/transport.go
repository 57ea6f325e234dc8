package telemetry

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewTransport wraps base so every backend call is traced by otelhttp and
// counted in the backend metrics. basePath is stripped from URL paths when
// deriving the resource label.
func NewTransport(base http.RoundTripper, t *DashboardTelemetry, basePath string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	metered := &meteredTransport{
		next:      base,
		telemetry: t,
		basePath:  strings.TrimRight(basePath, "/"),
	}
	return otelhttp.NewTransport(metered)
}

type meteredTransport struct {
	next      http.RoundTripper
	telemetry *DashboardTelemetry
	basePath  string
}

func (m *meteredTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := m.next.RoundTrip(req)

	metrics := BackendMetrics{
		Method:   req.Method,
		Resource: resourceFromPath(strings.TrimPrefix(req.URL.Path, m.basePath)),
		Duration: time.Since(start),
	}
	switch {
	case err != nil:
		metrics.Outcome = "transport_error"
	case resp.StatusCode >= 400:
		metrics.StatusCode = resp.StatusCode
		metrics.Outcome = "http_error"
	default:
		metrics.StatusCode = resp.StatusCode
		metrics.Outcome = "success"
	}

	if m.telemetry != nil {
		m.telemetry.RegisterBackendCall(req.Context(), metrics)
	}
	return resp, err
}

// Backend path segments that may appear verbatim in the resource label.
// Anything else after a collection name is an opaque id.
var (
	backendCollections = map[string]bool{
		"products": true, "orders": true, "customers": true, "employees": true,
		"categories": true, "stores": true, "sales": true,
	}
	collectionActions = map[string]bool{"stats": true}
	itemActions       = map[string]bool{"status": true, "payment-status": true, "login": true}
)

// resourceFromPath turns /products/42/status into products/{id}/status.
// Unknown collections collapse to "other".
func resourceFromPath(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}

	segments := strings.Split(trimmed, "/")
	if !backendCollections[segments[0]] {
		return "other"
	}
	if len(segments) > 3 {
		segments = segments[:3]
	}
	for i := 1; i < len(segments); i++ {
		seg := segments[i]
		switch {
		case i == 1 && collectionActions[seg]:
		case i == 2 && itemActions[seg]:
		case i == 1:
			segments[i] = "{id}"
		default:
			segments[i] = "{action}"
		}
	}
	return strings.Join(segments, "/")
}
