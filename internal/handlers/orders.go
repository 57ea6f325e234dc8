package handlers

import (
	"log/slog"
	"net/http"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
)

// OrdersHandler handles order requests
type OrdersHandler struct {
	orders *client.OrdersClient
}

// NewOrdersHandler creates a new orders handler
func NewOrdersHandler(orders *client.OrdersClient) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// List handles GET /api/v1/orders
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	var filters models.OrderFilters
	if err := decodeFilters(r, &filters); err != nil {
		writeDecodeError(w, err)
		return
	}

	env, err := h.orders.List(r.Context(), filters)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Get handles GET /api/v1/orders/{id}
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	env, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Stats handles GET /api/v1/orders/stats
func (h *OrdersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var filters models.StatsFilters
	if err := decodeFilters(r, &filters); err != nil {
		writeDecodeError(w, err)
		return
	}

	env, err := h.orders.Stats(r.Context(), filters)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// UpdateStatus handles PATCH /api/v1/orders/{id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body models.OrderStatusUpdate
	if !decodeJSON(w, r, &body) {
		return
	}

	env, err := h.orders.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeClientError(w, r, err)
		return
	}

	slog.Info("Order status updated", "order_id", id.String(), "status", body.Status)
	writeJSONResponse(w, http.StatusOK, env)
}

// UpdatePaymentStatus handles PATCH /api/v1/orders/{id}/payment-status
func (h *OrdersHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body models.PaymentStatusUpdate
	if !decodeJSON(w, r, &body) {
		return
	}

	env, err := h.orders.UpdatePaymentStatus(r.Context(), id, body.PaymentStatus)
	if err != nil {
		writeClientError(w, r, err)
		return
	}

	slog.Info("Order payment status updated", "order_id", id.String(), "payment_status", body.PaymentStatus)
	writeJSONResponse(w, http.StatusOK, env)
}

// Delete handles DELETE /api/v1/orders/{id}
func (h *OrdersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeClientError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
