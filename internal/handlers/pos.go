package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
	"github.com/melibackend/retail-dashboard/internal/pos"
	"github.com/melibackend/retail-dashboard/internal/telemetry"
)

// CheckoutBody is the body of POST /api/v1/pos/checkout
type CheckoutBody struct {
	pos.CheckoutRequest
	Items []models.SaleItemInput `json:"items"`
}

// POSHandler exposes the register to the dashboard
type POSHandler struct {
	register  *pos.Register
	telemetry *telemetry.DashboardTelemetry
}

// NewPOSHandler creates a new POS handler; tel may be nil
func NewPOSHandler(register *pos.Register, tel *telemetry.DashboardTelemetry) *POSHandler {
	return &POSHandler{register: register, telemetry: tel}
}

// Lookup handles GET /api/v1/pos/lookup?code=
func (h *POSHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Code is required", map[string][]string{
			"code": {"cannot be empty"},
		})
		return
	}

	product, err := h.register.Lookup(r.Context(), code)
	switch {
	case errors.Is(err, pos.ErrProductNotFound):
		writeErrorResponse(w, http.StatusNotFound, "not_found", "No product matches "+code, nil)
		return
	case errors.Is(err, pos.ErrAmbiguousProduct):
		writeErrorResponse(w, http.StatusConflict, "ambiguous_code", "More than one product matches "+code, nil)
		return
	case err != nil:
		writeClientError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, product)
}

// Checkout handles POST /api/v1/pos/checkout. The Idempotency-Key header is
// used when the body carries no key.
func (h *POSHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var body CheckoutBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	receipt, err := h.register.Submit(r.Context(), body.Items, body.CheckoutRequest)
	if err != nil {
		h.recordCheckout(r, checkoutOutcome(err), "")
		switch {
		case errors.Is(err, pos.ErrEmptyCart):
			writeErrorResponse(w, http.StatusUnprocessableEntity, "empty_cart", "Cart is empty", map[string][]string{
				"items": {"at least one item is required"},
			})
		case errors.Is(err, pos.ErrCheckoutInProgress):
			writeErrorResponse(w, http.StatusConflict, "checkout_in_progress", "Checkout already in progress", nil)
		case errors.Is(err, pos.ErrKeyReused):
			writeErrorResponse(w, http.StatusUnprocessableEntity, "idempotency_key_reused", "Idempotency key was already used for a different sale", map[string][]string{
				"idempotency_key": {"already used for a different sale"},
			})
		default:
			writeClientError(w, r, err)
		}
		return
	}

	outcome := "success"
	status := http.StatusCreated
	if receipt.Replayed {
		outcome = "replayed"
		status = http.StatusOK
	}
	storeID := receipt.Sale.StoreID.String()
	telemetry.SetStoreID(r.Context(), storeID)
	h.recordCheckout(r, outcome, storeID)

	slog.Info("POS checkout handled",
		"sale_id", receipt.Sale.ID.String(),
		"idempotency_key", receipt.IdempotencyKey,
		"replayed", receipt.Replayed,
		"remote_addr", r.RemoteAddr)

	writeJSONResponse(w, status, receipt)
}

func (h *POSHandler) recordCheckout(r *http.Request, outcome, storeID string) {
	if h.telemetry != nil {
		h.telemetry.RegisterCheckout(r.Context(), outcome, storeID)
	}
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, pos.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, pos.ErrCheckoutInProgress):
		return "in_progress"
	case errors.Is(err, pos.ErrKeyReused):
		return "key_reused"
	}
	return string(client.KindOf(err))
}
