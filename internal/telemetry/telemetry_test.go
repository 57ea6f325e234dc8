package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestTelemetry(t *testing.T) (*DashboardTelemetry, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	tel, err := NewDashboardTelemetry(provider)
	require.NoError(t, err)
	return tel, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumPoints(t *testing.T, m metricdata.Metrics) []metricdata.DataPoint[int64] {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	return sum.DataPoints
}

func attr(dp metricdata.DataPoint[int64], key string) string {
	v, _ := dp.Attributes.Value(attribute.Key(key))
	return v.Emit()
}

func TestTelemetryMiddleware_RecordsRouteTemplates(t *testing.T) {
	// Arrange
	tel, reader := newTestTelemetry(t)

	router := mux.NewRouter()
	router.Use(NewTelemetryMiddleware(tel).Middleware)
	router.HandleFunc("/api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		SetStoreID(r.Context(), "7")
		w.Write([]byte(`{}`))
	}).Methods(http.MethodGet)

	// Act
	for _, path := range []string{"/api/v1/products/1", "/api/v1/products/2", "/api/v1/products/missing"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.5:5555"
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	// Assert
	metrics := collect(t, reader)

	requests := sumPoints(t, metrics["dashboard_api_requests_total"])
	require.Len(t, requests, 1)
	assert.Equal(t, int64(2), requests[0].Value)
	assert.Equal(t, "/api/v1/products/{id}", attr(requests[0], "endpoint"))
	assert.Equal(t, "internal", attr(requests[0], "client_ip_type"))
	assert.Equal(t, "7", attr(requests[0], "store_id"))

	errs := sumPoints(t, metrics["dashboard_api_errors_total"])
	require.Len(t, errs, 1)
	assert.Equal(t, int64(1), errs[0].Value)
	assert.Equal(t, "not_found", attr(errs[0], "error_type"))
	assert.Equal(t, "404", attr(errs[0], "status_code"))

	_, ok := metrics["dashboard_api_request_duration_seconds"]
	assert.True(t, ok)
}

func TestTransport_RecordsBackendCalls(t *testing.T) {
	tel, reader := newTestTelemetry(t)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/orders/stats" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer backend.Close()

	httpClient := &http.Client{Transport: NewTransport(nil, tel, "/api")}

	resp, err := httpClient.Get(backend.URL + "/api/products/12")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp, err = httpClient.Get(backend.URL + "/api/orders/stats")
	require.NoError(t, err)
	resp.Body.Close()

	points := sumPoints(t, collect(t, reader)["backend_requests_total"])
	byResource := map[string]metricdata.DataPoint[int64]{}
	for _, dp := range points {
		byResource[attr(dp, "resource")] = dp
	}

	require.Contains(t, byResource, "products/{id}")
	assert.Equal(t, "success", attr(byResource["products/{id}"], "outcome"))
	require.Contains(t, byResource, "orders/stats")
	assert.Equal(t, "http_error", attr(byResource["orders/stats"], "outcome"))
}

func TestTransport_RecordsTransportErrors(t *testing.T) {
	tel, reader := newTestTelemetry(t)

	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	httpClient := &http.Client{Transport: NewTransport(nil, tel, "")}
	_, err := httpClient.Get(url + "/stores")
	require.Error(t, err)

	points := sumPoints(t, collect(t, reader)["backend_requests_total"])
	require.Len(t, points, 1)
	assert.Equal(t, "transport_error", attr(points[0], "outcome"))
	assert.Equal(t, "stores", attr(points[0], "resource"))
}

func TestRegisterCheckout(t *testing.T) {
	tel, reader := newTestTelemetry(t)

	tel.RegisterCheckout(context.Background(), "success", "3")
	tel.RegisterCheckout(context.Background(), "success", "3")
	tel.RegisterCheckout(context.Background(), "validation", "")

	points := sumPoints(t, collect(t, reader)["pos_checkouts_total"])
	total := int64(0)
	for _, dp := range points {
		total += dp.Value
	}
	assert.Len(t, points, 2)
	assert.Equal(t, int64(3), total)
}

func TestInitMetrics_Prometheus(t *testing.T) {
	tm, err := InitMetrics(context.Background(), ExporterPrometheus, "")
	require.NoError(t, err)
	defer tm.Shutdown(context.Background())

	tel, err := NewDashboardTelemetry(tm.MeterProvider())
	require.NoError(t, err)
	tel.RegisterRequestReceived(context.Background(), RequestMetrics{Method: "GET", Endpoint: "/health", StatusCode: 200})

	rec := httptest.NewRecorder()
	tm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard_api_requests")
}

func TestInitMetrics_NoneAndUnknown(t *testing.T) {
	tm, err := InitMetrics(context.Background(), ExporterNone, "")
	require.NoError(t, err)
	assert.NotNil(t, tm.MeterProvider())
	assert.NoError(t, tm.Shutdown(context.Background()))

	rec := httptest.NewRecorder()
	tm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err = InitMetrics(context.Background(), "statsd", "")
	assert.Error(t, err)
}

func TestResourceFromPath(t *testing.T) {
	tests := map[string]string{
		"/products":                "products",
		"/products/42":             "products/{id}",
		"/orders/7/payment-status": "orders/{id}/payment-status",
		"/employees/3/login":       "employees/{id}/login",
		"/customers/stats":         "customers/stats",
		"/stores/downtown-east":    "stores/{id}",
		"/orders/ord_7Hx/refund":   "orders/{id}/{action}",
		"/products/1/a/b/c":        "products/{id}/{action}",
		"/admin/secret":            "other",
		"/":                        "/",
	}
	for path, expected := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, expected, resourceFromPath(path))
		})
	}

	t.Run("uuid ids", func(t *testing.T) {
		assert.Equal(t, "products/{id}", resourceFromPath("/products/"+uuid.NewString()))
		assert.Equal(t, "orders/{id}/status", resourceFromPath("/orders/"+uuid.NewString()+"/status"))
	})
}

func TestCategorizeStatus(t *testing.T) {
	assert.Equal(t, "validation", categorizeStatus(422))
	assert.Equal(t, "rate_limited", categorizeStatus(429))
	assert.Equal(t, "backend_unavailable", categorizeStatus(502))
	assert.Equal(t, "internal_error", categorizeStatus(500))
	assert.Equal(t, "client_error", categorizeStatus(418))
}

func TestNormalizeClientIP(t *testing.T) {
	assert.Equal(t, "unknown", NormalizeClientIP(""))
	assert.Equal(t, "invalid", NormalizeClientIP("not-an-ip"))
	assert.Equal(t, "localhost", NormalizeClientIP("127.0.0.1"))
	assert.Equal(t, "internal", NormalizeClientIP("192.168.1.20"))
	assert.Equal(t, "external", NormalizeClientIP("8.8.8.8"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:1234"
	assert.Equal(t, "10.1.1.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "10.1.1.1", getClientIP(req), "forwarding headers are resolved upstream")

	req.RemoteAddr = "203.0.113.7"
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}
