package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/events"
	"github.com/melibackend/retail-dashboard/internal/middleware"
	"github.com/melibackend/retail-dashboard/internal/pos"
	"github.com/melibackend/retail-dashboard/internal/telemetry"
)

// RouteDeps collects what the dashboard routes are served from
type RouteDeps struct {
	Clients     *client.Clients
	Register    *pos.Register
	Feed        *events.SaleFeed
	RateLimiter *middleware.RateLimiter
	Telemetry   *telemetry.DashboardTelemetry
	AdminKeys   []string
	Logger      *slog.Logger
}

// RegisterRoutes mounts /health and the authenticated /api/v1 tree on r
func RegisterRoutes(r *mux.Router, deps RouteDeps) {
	healthHandler := NewHealthHandler()
	productsHandler := NewProductsHandler(deps.Clients.Products)
	ordersHandler := NewOrdersHandler(deps.Clients.Orders)
	customersHandler := NewCustomersHandler(deps.Clients.Customers)
	employeesHandler := NewEmployeesHandler(deps.Clients.Employees)
	catalogHandler := NewCatalogHandler(deps.Clients)
	posHandler := NewPOSHandler(deps.Register, deps.Telemetry)
	adminHandler := NewAdminHandler(deps.RateLimiter, deps.Register)

	// Health check endpoint (no auth required)
	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Admin routes are keyed separately from dashboard sessions
	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminAuthMiddleware(deps.AdminKeys))
	admin.HandleFunc("/rate-limit/status", adminHandler.GetRateLimitStatus).Methods(http.MethodGet)
	admin.HandleFunc("/rate-limit/reset", adminHandler.ResetRateLimits).Methods(http.MethodPost)
	admin.HandleFunc("/checkout-dedupe", adminHandler.GetCheckoutDedupe).Methods(http.MethodGet)

	api := v1.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware)

	api.HandleFunc("/products", productsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/products", productsHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", productsHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", productsHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}", productsHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/orders", ordersHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/orders/stats", ordersHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", ordersHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", ordersHandler.UpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}/payment-status", ordersHandler.UpdatePaymentStatus).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}", ordersHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/customers", customersHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/customers", customersHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/customers/stats", customersHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}", customersHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}", customersHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/customers/{id}", customersHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/employees", employeesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/employees", employeesHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/employees/{id}", employeesHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/employees/{id}/status", employeesHandler.UpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/employees/{id}/login", employeesHandler.RecordLogin).Methods(http.MethodPost)
	api.HandleFunc("/employees/{id}", employeesHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/categories", catalogHandler.Categories).Methods(http.MethodGet)
	api.HandleFunc("/stores", catalogHandler.Stores).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/summary", catalogHandler.Summary).Methods(http.MethodGet)

	api.HandleFunc("/pos/lookup", posHandler.Lookup).Methods(http.MethodGet)
	api.HandleFunc("/pos/checkout", posHandler.Checkout).Methods(http.MethodPost)
	if deps.Feed != nil {
		salesFeedHandler := NewSalesFeedHandler(deps.Feed, deps.Clients.Stores, deps.Logger)
		api.HandleFunc("/pos/sales", salesFeedHandler.GetSales).Methods(http.MethodGet)
	}
}
