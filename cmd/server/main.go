package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/config"
	"github.com/melibackend/retail-dashboard/internal/events"
	"github.com/melibackend/retail-dashboard/internal/handlers"
	"github.com/melibackend/retail-dashboard/internal/middleware"
	"github.com/melibackend/retail-dashboard/internal/pos"
	"github.com/melibackend/retail-dashboard/internal/telemetry"
)

const serviceName = "retail-dashboard"

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tm, err := telemetry.InitMetrics(ctx, cfg.MetricsExporter, cfg.MetricsPort)
	if err != nil {
		slog.Error("Failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	dashTelemetry, err := telemetry.NewDashboardTelemetry(tm.MeterProvider())
	if err != nil {
		slog.Error("Failed to create dashboard telemetry", "error", err)
		os.Exit(1)
	}

	basePath := ""
	if u, err := url.Parse(cfg.APIBaseURL); err == nil {
		basePath = u.Path
	}
	api, err := client.NewAPIClient(client.Config{
		BaseURL:        cfg.APIBaseURL,
		Token:          cfg.APIToken,
		Timeout:        config.ParseDuration(cfg.APITimeout, 30*time.Second),
		Transport:      telemetry.NewTransport(nil, dashTelemetry, basePath),
		MethodOverride: cfg.MethodOverride(),
		Logger:         slog.Default(),
	})
	if err != nil {
		slog.Error("Failed to create backend client", "error", err)
		os.Exit(1)
	}
	clients := client.NewClients(api)

	feed, err := events.NewSaleFeed(events.SaleFeedConfig{
		FilePath:  cfg.SalesFeedFile,
		MaxEvents: config.ParseInt(cfg.SalesFeedMaxEvents, 1000),
		Logger:    slog.Default(),
	})
	if err != nil {
		slog.Error("Failed to create sale feed", "error", err)
		os.Exit(1)
	}

	publishers := events.Multi{feed}
	var natsPublisher *events.NATSPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err = events.ConnectNATS(cfg.NATSURL, cfg.NATSSalesSubject, slog.Default())
		if err != nil {
			// Checkouts still succeed without the broker; events stay in the local feed
			slog.Warn("NATS unavailable, sale events will only be recorded locally", "url", cfg.NATSURL, "error", err)
		} else {
			publishers = append(publishers, natsPublisher)
		}
	}

	register := pos.NewRegister(clients.Products, clients.Sales, pos.RegisterConfig{
		DedupeTTL: config.ParseDuration(cfg.CheckoutDedupeTTL, 10*time.Minute),
		Publisher: publishers,
		Logger:    slog.Default(),
	})

	rateLimiter := middleware.NewRateLimiter(middleware.ParseRateLimitConfig(cfg))
	proxyTrust, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		slog.Error("Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	r := mux.NewRouter()
	r.Use(telemetry.NewTelemetryMiddleware(dashTelemetry).Middleware)
	handlers.RegisterRoutes(r, handlers.RouteDeps{
		Clients:     clients,
		Register:    register,
		Feed:        feed,
		RateLimiter: rateLimiter,
		Telemetry:   dashTelemetry,
		AdminKeys:   cfg.AdminKeys(),
		Logger:      slog.Default(),
	})
	if cfg.MetricsPort == "" {
		r.Handle("/metrics", tm.Handler()).Methods(http.MethodGet)
	}

	// Outer middleware wraps the router so preflights reach CORS before route matching
	var handler http.Handler = r
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)
	handler = middleware.CORS(cfg.CORSOrigin)(handler)
	handler = chimiddleware.Timeout(config.ParseDuration(cfg.RequestTimeout, 60*time.Second))(handler)
	handler = chimiddleware.Recoverer(handler)
	if cfg.IsDevelopment() {
		handler = chimiddleware.Logger(handler)
	}
	handler = middleware.RealIP(proxyTrust)(handler)
	handler = chimiddleware.RequestID(handler)
	handler = otelhttp.NewHandler(handler, serviceName)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// long-polling the sales feed holds a request for up to 30s
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting dashboard server",
			"service", serviceName,
			"version", handlers.Version,
			"port", cfg.Port,
			"environment", cfg.Environment,
			"backend", api.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	rateLimiter.Stop()
	register.Close()
	if natsPublisher != nil {
		if err := natsPublisher.Close(); err != nil {
			slog.Warn("Failed to drain NATS connection", "error", err)
		}
	}
	if err := feed.Close(); err != nil {
		slog.Error("Failed to persist sale feed", "error", err)
	}
	if err := tm.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shutdown metrics", "error", err)
	}

	slog.Info("Server exited")
}
