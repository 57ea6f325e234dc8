package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/melibackend/retail-dashboard/internal/events"
	"github.com/melibackend/retail-dashboard/internal/models"
)

// StoreLister returns the stores the calling token may see
type StoreLister interface {
	List(ctx context.Context, filters models.CatalogFilters) (*models.PaginatedEnvelope[models.Store], error)
}

// SalesFeedResponse is a page of recorded sales
type SalesFeedResponse struct {
	Events     []events.FeedEntry `json:"events"`
	NextOffset int64              `json:"nextOffset"`
	HasMore    bool               `json:"hasMore"`
	Count      int                `json:"count"`
}

// SalesFeedHandler serves the recent sales journal for dashboards that
// follow checkouts live. Callers only see sales of the stores the backend
// lists for their token.
type SalesFeedHandler struct {
	feed   *events.SaleFeed
	stores StoreLister
	logger *slog.Logger
}

// NewSalesFeedHandler creates a new sales feed handler
func NewSalesFeedHandler(feed *events.SaleFeed, stores StoreLister, logger *slog.Logger) *SalesFeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalesFeedHandler{feed: feed, stores: stores, logger: logger}
}

// GetSales handles GET /api/v1/pos/sales?offset=&limit=&wait=&store_id=
func (h *SalesFeedHandler) GetSales(w http.ResponseWriter, r *http.Request) {
	// the backend authenticates the token and scopes the store list
	env, err := h.stores.List(r.Context(), models.CatalogFilters{})
	if err != nil {
		writeClientError(w, r, err)
		return
	}
	visible := make(map[models.ID]bool, len(env.Data))
	for _, store := range env.Data {
		visible[store.ID] = true
	}

	if storeID := models.ID(r.URL.Query().Get("store_id")); !storeID.IsZero() {
		if !visible[storeID] {
			writeErrorResponse(w, http.StatusForbidden, "forbidden", "Store is not accessible", nil)
			return
		}
		visible = map[models.ID]bool{storeID: true}
	}
	match := func(e events.FeedEntry) bool { return visible[e.Sale.StoreID] }

	offset := h.feed.CurrentOffset()
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.ParseInt(offsetStr, 10, 64)
		if err != nil || parsed < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid offset parameter", map[string][]string{
				"offset": {"must be a non-negative integer"},
			})
			return
		}
		offset = parsed
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	waitSeconds := 0
	if waitStr := r.URL.Query().Get("wait"); waitStr != "" {
		if parsedWait, err := strconv.Atoi(waitStr); err == nil && parsedWait >= 0 && parsedWait <= 30 {
			waitSeconds = parsedWait
		}
	}

	entries, nextOffset, hasMore := h.feed.SinceMatching(offset, limit, match)

	if len(entries) == 0 && waitSeconds > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(waitSeconds)*time.Second)
		for len(entries) == 0 && h.feed.Wait(ctx, nextOffset) {
			entries, nextOffset, hasMore = h.feed.SinceMatching(nextOffset, limit, match)
		}
		cancel()

		if r.Context().Err() != nil {
			h.logger.Debug("Client disconnected during long polling", "offset", offset)
			return
		}
	}

	h.logger.Debug("Sales feed response sent",
		"offset", offset,
		"events_count", len(entries),
		"next_offset", nextOffset,
		"has_more", hasMore)

	writeJSONResponse(w, http.StatusOK, SalesFeedResponse{
		Events:     entries,
		NextOffset: nextOffset,
		HasMore:    hasMore,
		Count:      len(entries),
	})
}
