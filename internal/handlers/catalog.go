package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
)

// CatalogHandler serves the lookup lists and the dashboard summary
type CatalogHandler struct {
	clients *client.Clients
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(clients *client.Clients) *CatalogHandler {
	return &CatalogHandler{clients: clients}
}

// Categories handles GET /api/v1/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	var filters models.CatalogFilters
	if err := decodeFilters(r, &filters); err != nil {
		writeDecodeError(w, err)
		return
	}

	env, err := h.clients.Categories.List(r.Context(), filters)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Stores handles GET /api/v1/stores
func (h *CatalogHandler) Stores(w http.ResponseWriter, r *http.Request) {
	var filters models.CatalogFilters
	if err := decodeFilters(r, &filters); err != nil {
		writeDecodeError(w, err)
		return
	}

	env, err := h.clients.Stores.List(r.Context(), filters)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Summary handles GET /api/v1/dashboard/summary. Order and customer stats
// are fetched concurrently; one failing source is reported in Errors while
// the other is still returned.
func (h *CatalogHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var filters models.StatsFilters
	if err := decodeFilters(r, &filters); err != nil {
		writeDecodeError(w, err)
		return
	}

	var (
		wg          sync.WaitGroup
		summary     models.DashboardSummary
		orderErr    error
		customerErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		env, err := h.clients.Orders.Stats(r.Context(), filters)
		if err != nil {
			orderErr = err
			return
		}
		summary.Orders = &env.Data
	}()
	go func() {
		defer wg.Done()
		env, err := h.clients.Customers.Stats(r.Context())
		if err != nil {
			customerErr = err
			return
		}
		summary.Customers = &env.Data
	}()
	wg.Wait()

	if orderErr != nil && customerErr != nil {
		writeClientError(w, r, orderErr)
		return
	}
	if orderErr != nil {
		slog.Warn("Dashboard summary missing order stats", "error", orderErr)
		summary.Errors = append(summary.Errors, "Failed to fetch order stats")
	}
	if customerErr != nil {
		slog.Warn("Dashboard summary missing customer stats", "error", customerErr)
		summary.Errors = append(summary.Errors, "Failed to fetch customer stats")
	}

	writeJSONResponse(w, http.StatusOK, summary)
}
