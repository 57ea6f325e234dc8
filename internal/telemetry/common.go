package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Metrics exporter kinds accepted by InitMetrics
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterNone       = "none"
)

// Telemetry owns the meter provider and, for the prometheus exporter, the
// scrape endpoint.
type Telemetry struct {
	server   *http.Server          // set when metrics are served on a dedicated port
	Provider *metric.MeterProvider // nil when metrics are disabled
	registry *promclient.Registry  // set for the prometheus exporter
	meter    api.MeterProvider
}

// InitMetrics builds the meter provider for exporter and installs it
// globally. With the prometheus exporter and a non-empty port, /metrics is
// served on that port; otherwise callers can mount Handler themselves.
// The OTLP exporter sends to OTEL_EXPORTER_OTLP_METRICS_ENDPOINT
// (localhost:4317 when unset).
func InitMetrics(ctx context.Context, exporter, port string) (*Telemetry, error) {
	t := &Telemetry{}

	switch strings.ToLower(exporter) {
	case ExporterPrometheus, "scraper":
		slog.Info("Starting metrics with prometheus exporter")
		t.registry = promclient.NewRegistry()
		exp, err := prometheus.New(prometheus.WithRegisterer(t.registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		t.Provider = metric.NewMeterProvider(metric.WithReader(exp))
		if port != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", t.Handler())
			t.server = &http.Server{
				Addr:              ":" + port,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go t.serveMetrics()
		}

	case ExporterOTLP, "grpc":
		slog.Info("Starting metrics with grpc exporter")
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create grpc exporter: %w", err)
		}
		t.Provider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exp)))

	case ExporterNone, "":
		slog.Info("Metrics disabled")
		t.meter = noop.NewMeterProvider()
		return t, nil

	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", exporter)
	}

	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider
	return t, nil
}

// MeterProvider returns the provider instruments should be created from
func (t *Telemetry) MeterProvider() api.MeterProvider {
	return t.meter
}

// Handler serves the prometheus registry, or 404 for other exporters
func (t *Telemetry) Handler() http.Handler {
	if t.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes the provider and stops the metrics server
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		errs = append(errs, t.server.Shutdown(ctx))
		slog.Info("Shutting down metrics server")
	}
	if t.Provider != nil {
		errs = append(errs, t.Provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// serveMetrics runs the scrape endpoint for the prometheus exporter
func (t *Telemetry) serveMetrics() {
	slog.Info("Serving metrics", "addr", t.server.Addr, "path", "/metrics")

	if err := t.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("Metrics server closed")
			return
		}
		slog.Error("Metrics server exited", "error", err)
	}
}
