package handlers

import (
	"log/slog"
	"net/http"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
)

// ProductsHandler handles product catalog requests
type ProductsHandler struct {
	products *client.ProductsClient
}

// NewProductsHandler creates a new products handler
func NewProductsHandler(products *client.ProductsClient) *ProductsHandler {
	return &ProductsHandler{products: products}
}

// List handles GET /api/v1/products
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	var filters models.ProductFilters
	if err := decodeFilters(r, &filters); err != nil {
		writeDecodeError(w, err)
		return
	}

	slog.Debug("Listing products",
		"page", filters.Page,
		"per_page", filters.PerPage,
		"search", filters.Search,
		"remote_addr", r.RemoteAddr)

	env, err := h.products.List(r.Context(), filters)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Get handles GET /api/v1/products/{id}
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	env, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Create handles POST /api/v1/products. The body is JSON, or a multipart
// form with an optional image part.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.ProductInput
	image, ok := decodeBody(w, r, &input, "image")
	if !ok {
		return
	}
	input.Image = image

	env, err := h.products.Create(r.Context(), input)
	if err != nil {
		writeClientError(w, r, err)
		return
	}

	slog.Info("Product created",
		"product_id", env.Data.ID.String(),
		"sku", env.Data.SKU,
		"with_image", image != nil)
	writeJSONResponse(w, http.StatusCreated, env)
}

// Update handles PUT /api/v1/products/{id}
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var input models.ProductUpdate
	image, ok := decodeBody(w, r, &input, "image")
	if !ok {
		return
	}
	input.Image = image

	env, err := h.products.Update(r.Context(), id, input)
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

// Delete handles DELETE /api/v1/products/{id}
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		writeClientError(w, r, err)
		return
	}

	slog.Info("Product deleted", "product_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}
