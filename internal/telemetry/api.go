package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "retail-dashboard"

// DashboardTelemetry holds the instruments for the dashboard server and its
// backend calls
type DashboardTelemetry struct {
	meter metric.Meter

	// Dashboard API
	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram

	// Backend calls
	backendCounter  metric.Int64Counter
	backendDuration metric.Float64Histogram

	// POS
	checkoutCounter metric.Int64Counter
}

// RequestMetrics describes one served request
type RequestMetrics struct {
	Method     string
	Endpoint   string
	StatusCode int
	Duration   time.Duration
	// ClientIP is logged only; ClientIPType is the metric attribute
	ClientIP     string
	ClientIPType string
	StoreID      string
}

// BackendMetrics describes one outbound call to the backend API
type BackendMetrics struct {
	Method     string
	Resource   string
	StatusCode int
	Outcome    string
	Duration   time.Duration
}

// NewDashboardTelemetry creates every instrument from provider. A nil
// provider uses the global one.
func NewDashboardTelemetry(provider metric.MeterProvider) (*DashboardTelemetry, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	t := &DashboardTelemetry{meter: provider.Meter(meterName)}

	var err error

	t.requestCounter, err = t.meter.Int64Counter(
		"dashboard_api_requests_total",
		metric.WithDescription("Total number of dashboard API requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	t.errorCounter, err = t.meter.Int64Counter(
		"dashboard_api_errors_total",
		metric.WithDescription("Total number of dashboard API requests answered with an error status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	t.durationHistogram, err = t.meter.Float64Histogram(
		"dashboard_api_request_duration_seconds",
		metric.WithDescription("Duration of dashboard API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	t.backendCounter, err = t.meter.Int64Counter(
		"backend_requests_total",
		metric.WithDescription("Total number of requests sent to the backend API"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend counter: %w", err)
	}

	t.backendDuration, err = t.meter.Float64Histogram(
		"backend_request_duration_seconds",
		metric.WithDescription("Duration of requests sent to the backend API"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend duration histogram: %w", err)
	}

	t.checkoutCounter, err = t.meter.Int64Counter(
		"pos_checkouts_total",
		metric.WithDescription("Total number of POS checkout attempts by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout counter: %w", err)
	}

	slog.Info("Dashboard telemetry initialized")
	return t, nil
}

func (m RequestMetrics) attributes() []attribute.KeyValue {
	// Low-cardinality attributes only
	attrs := []attribute.KeyValue{
		attribute.String("method", m.Method),
		attribute.String("endpoint", m.Endpoint),
		attribute.Int("status_code", m.StatusCode),
	}
	if m.ClientIPType != "" {
		attrs = append(attrs, attribute.String("client_ip_type", m.ClientIPType))
	}
	if m.StoreID != "" {
		attrs = append(attrs, attribute.String("store_id", m.StoreID))
	}
	return attrs
}

// RegisterRequestReceived records a served request
func (t *DashboardTelemetry) RegisterRequestReceived(ctx context.Context, m RequestMetrics) {
	t.requestCounter.Add(ctx, 1, metric.WithAttributes(m.attributes()...))
}

// RegisterRequestError records a request answered with status >= 400
func (t *DashboardTelemetry) RegisterRequestError(ctx context.Context, m RequestMetrics) {
	attrs := append(m.attributes(), attribute.String("error_type", categorizeStatus(m.StatusCode)))
	t.errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	slog.Debug("Recorded API request error",
		"method", m.Method,
		"endpoint", m.Endpoint,
		"status_code", m.StatusCode,
		"client_ip", m.ClientIP,
		"error_type", categorizeStatus(m.StatusCode))
}

// RegisterRequestDuration records the latency of a served request
func (t *DashboardTelemetry) RegisterRequestDuration(ctx context.Context, m RequestMetrics) {
	t.durationHistogram.Record(ctx, m.Duration.Seconds(), metric.WithAttributes(m.attributes()...))
}

// RegisterBackendCall records an outbound backend call
func (t *DashboardTelemetry) RegisterBackendCall(ctx context.Context, m BackendMetrics) {
	attrs := metric.WithAttributes(
		attribute.String("method", m.Method),
		attribute.String("resource", m.Resource),
		attribute.Int("status_code", m.StatusCode),
		attribute.String("outcome", m.Outcome),
	)
	t.backendCounter.Add(ctx, 1, attrs)
	t.backendDuration.Record(ctx, m.Duration.Seconds(), attrs)
}

// RegisterCheckout records a POS checkout attempt
func (t *DashboardTelemetry) RegisterCheckout(ctx context.Context, outcome, storeID string) {
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if storeID != "" {
		attrs = append(attrs, attribute.String("store_id", storeID))
	}
	t.checkoutCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// categorizeStatus groups error statuses to keep cardinality low
func categorizeStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "bad_request"
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusConflict:
		return "conflict"
	case status == http.StatusUnprocessableEntity:
		return "validation"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusBadGateway:
		return "backend_unavailable"
	case status == http.StatusGatewayTimeout:
		return "timeout"
	case status >= 500:
		return "internal_error"
	case status >= 400:
		return "client_error"
	default:
		return "other"
	}
}

// NormalizeClientIP categorizes client IPs to control cardinality
func NormalizeClientIP(clientIP string) string {
	if clientIP == "" {
		return "unknown"
	}

	ip := net.ParseIP(clientIP)
	switch {
	case ip == nil:
		return "invalid"
	case ip.IsLoopback():
		return "localhost"
	case ip.IsPrivate(), ip.IsLinkLocalUnicast():
		return "internal"
	default:
		return "external"
	}
}
