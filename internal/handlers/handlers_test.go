package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/events"
	"github.com/melibackend/retail-dashboard/internal/middleware"
	"github.com/melibackend/retail-dashboard/internal/models"
	"github.com/melibackend/retail-dashboard/internal/pos"
)

type backendCall struct {
	Method      string
	Path        string
	Query       url.Values
	Auth        string
	ContentType string
	Body        string
}

// stubBackend answers the backend routes the dashboard calls
type stubBackend struct {
	mu         sync.Mutex
	calls      []backendCall
	ordersFail bool
	saleCalls  int
}

func (b *stubBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, backendCall{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		Auth:        r.Header.Get("Authorization"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
	})

	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	// the backend rejects tokens it did not issue
	if r.Header.Get("Authorization") == "Bearer garbage" {
		reply(http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthenticated."})
		return
	}

	milk := models.Product{ID: "1", Name: "Milk", SKU: "MLK-1", Barcode: "8991001", Price: 1.5, Status: "active"}
	oatMilk := models.Product{ID: "2", Name: "Oat Milk", SKU: "OAT-1", Barcode: "8991002", Price: 2.5, Status: "active"}

	switch {
	case r.URL.Path == "/api/products" && r.Method == http.MethodGet:
		var items []models.Product
		switch r.URL.Query().Get("search") {
		case "", "8991001":
			items = []models.Product{milk}
		case "milk":
			items = []models.Product{milk, oatMilk}
		default:
			items = []models.Product{}
		}
		reply(http.StatusOK, map[string]any{
			"success": true,
			"data":    items,
			"meta":    models.PaginationMeta{CurrentPage: 1, LastPage: 1, PerPage: 10, Total: len(items)},
		})
	case r.URL.Path == "/api/products" && r.Method == http.MethodPost:
		if strings.Contains(string(body), "DUP-1") {
			reply(http.StatusUnprocessableEntity, map[string]any{
				"success": false,
				"message": "SKU already exists",
				"errors":  map[string][]string{"sku": {"The sku has already been taken."}},
			})
			return
		}
		reply(http.StatusCreated, map[string]any{"success": true, "data": models.Product{ID: "10", Name: "Milk"}})
	case r.URL.Path == "/api/products/404":
		reply(http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
	case strings.HasPrefix(r.URL.Path, "/api/products/"):
		reply(http.StatusOK, map[string]any{"success": true, "data": milk})
	case r.URL.Path == "/api/orders/stats":
		if b.ordersFail {
			reply(http.StatusInternalServerError, map[string]any{"success": false, "message": "stats down"})
			return
		}
		reply(http.StatusOK, map[string]any{"success": true, "data": models.OrderStats{TotalOrders: 40, TotalRevenue: 812.5}})
	case r.URL.Path == "/api/customers/stats":
		reply(http.StatusOK, map[string]any{"success": true, "data": models.CustomerStats{TotalCustomers: 12}})
	case r.URL.Path == "/api/sales" && r.Method == http.MethodPost:
		b.saleCalls++
		reply(http.StatusCreated, map[string]any{"success": true, "data": models.Sale{
			ID: "501", OrderNumber: "POS-0001", StoreID: "3", PaymentMethod: "cash", TotalAmount: 3.0,
		}})
	case r.URL.Path == "/api/stores" && r.Method == http.MethodGet:
		reply(http.StatusOK, map[string]any{"success": true, "data": []models.Store{{ID: "3", Name: "Downtown"}}})
	case r.Method == http.MethodGet:
		reply(http.StatusOK, map[string]any{"success": true, "data": []any{}})
	default:
		reply(http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": 1}})
	}
}

func (b *stubBackend) failOrderStats() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ordersFail = true
}

func (b *stubBackend) sales() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saleCalls
}

func (b *stubBackend) lastCall(t *testing.T) backendCall {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.calls)
	return b.calls[len(b.calls)-1]
}

type testEnv struct {
	backend *stubBackend
	server  *httptest.Server
	router  *mux.Router
	feed    *events.SaleFeed
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := &stubBackend{}
	srv := httptest.NewServer(http.HandlerFunc(backend.serve))
	t.Cleanup(srv.Close)

	api, err := client.NewAPIClient(client.Config{
		BaseURL:        srv.URL + "/api",
		Timeout:        2 * time.Second,
		MethodOverride: true,
	})
	require.NoError(t, err)
	clients := client.NewClients(api)

	feed, err := events.NewSaleFeed(events.SaleFeedConfig{MaxEvents: 10})
	require.NoError(t, err)
	t.Cleanup(func() { feed.Close() })

	register := pos.NewRegister(clients.Products, clients.Sales, pos.RegisterConfig{
		DedupeTTL: time.Minute,
		Publisher: feed,
	})
	t.Cleanup(register.Close)

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{Enabled: false})
	t.Cleanup(limiter.Stop)

	router := mux.NewRouter()
	RegisterRoutes(router, RouteDeps{
		Clients:     clients,
		Register:    register,
		Feed:        feed,
		RateLimiter: limiter,
		AdminKeys:   []string{"ops-key"},
	})

	return &testEnv{backend: backend, server: srv, router: router, feed: feed}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer user-token")
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return authed(req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestAPI_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
}

func TestProducts_ListForwardsFiltersAndToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/products?status=all&search=milk&page=2", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedEnvelope[models.Product]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Pagination().Total)

	call := env.backend.lastCall(t)
	assert.Equal(t, "Bearer user-token", call.Auth)
	assert.Equal(t, "milk", call.Query.Get("search"))
	assert.Equal(t, "2", call.Query.Get("page"))
	assert.Equal(t, "10", call.Query.Get("per_page"))
	assert.False(t, call.Query.Has("status"), "the all sentinel is never sent")
}

func TestProducts_InvalidQuery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/products?page=abc", nil)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "bad_request", body.Code)
	assert.Contains(t, body.Fields, "page")
}

func TestProducts_GetNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/products/404", nil)))

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "not_found", body.Code)
	assert.Equal(t, "Product not found", body.Message)
}

func TestProducts_CreateValidationError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/products", map[string]any{"name": "Milk", "sku": "DUP-1", "price": 1.5}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "validation_failed", body.Code)
	assert.Equal(t, "SKU already exists", body.Message)
	assert.Equal(t, []string{"The sku has already been taken."}, body.Fields["sku"])
}

func TestProducts_CreateMultipartForwardsImage(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Milk"))
	require.NoError(t, mw.WriteField("sku", "MLK-2"))
	require.NoError(t, mw.WriteField("price", "1.75"))
	part, err := mw.CreateFormFile("image", "milk.png")
	require.NoError(t, err)
	part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/products", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := env.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	call := env.backend.lastCall(t)
	assert.True(t, strings.HasPrefix(call.ContentType, "multipart/form-data"))
	assert.Contains(t, call.Body, `filename="milk.png"`)
	assert.Contains(t, call.Body, "png-bytes")
	assert.Contains(t, call.Body, "MLK-2")
	assert.Contains(t, call.Body, "1.75")
}

func TestProducts_UpdateTunnelsThroughPost(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPut, "/api/v1/products/5", map[string]any{"name": "Whole Milk"}))

	require.Equal(t, http.StatusOK, rec.Code)
	call := env.backend.lastCall(t)
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/api/products/5", call.Path)
	assert.Equal(t, "PUT", call.Query.Get("_method"))
	assert.JSONEq(t, `{"name":"Whole Milk"}`, call.Body)
}

func TestBackendUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.server.Close()

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "backend_unavailable", decodeError(t, rec).Code)
}

func TestOrders_UpdateStatusSendsNarrowPayload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPatch, "/api/v1/orders/12/status", map[string]string{"status": "completed"}))

	require.Equal(t, http.StatusOK, rec.Code)
	call := env.backend.lastCall(t)
	assert.Equal(t, http.MethodPatch, call.Method)
	assert.Equal(t, "/api/orders/12/status", call.Path)
	assert.JSONEq(t, `{"status":"completed"}`, call.Body)
}

func TestDashboardSummary(t *testing.T) {
	t.Run("both sources", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/summary", nil)))

		require.Equal(t, http.StatusOK, rec.Code)
		var summary models.DashboardSummary
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
		require.NotNil(t, summary.Orders)
		require.NotNil(t, summary.Customers)
		assert.Equal(t, 40, summary.Orders.TotalOrders)
		assert.Equal(t, 12, summary.Customers.TotalCustomers)
		assert.Empty(t, summary.Errors)
	})

	t.Run("partial failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.failOrderStats()

		rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/summary", nil)))

		require.Equal(t, http.StatusOK, rec.Code)
		var summary models.DashboardSummary
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
		assert.Nil(t, summary.Orders)
		require.NotNil(t, summary.Customers)
		assert.Equal(t, []string{"Failed to fetch order stats"}, summary.Errors)
	})
}

func TestPOS_Lookup(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		code       string
		wantStatus int
	}{
		{code: "8991001", wantStatus: http.StatusOK},
		{code: "milk", wantStatus: http.StatusConflict},
		{code: "unknown", wantStatus: http.StatusNotFound},
		{code: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/pos/lookup?code="+tt.code, nil)))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestPOS_CheckoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"store_id":       "3",
		"payment_method": "cash",
		"amount_paid":    5,
		"items":          []map[string]any{{"product_id": "1", "quantity": 2, "unit_price": 1.5}},
	}

	send := func() *httptest.ResponseRecorder {
		req := jsonRequest(http.MethodPost, "/api/v1/pos/checkout", body)
		req.Header.Set("Idempotency-Key", "till-4-0001")
		return env.do(req)
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	var receipt pos.Receipt
	require.NoError(t, json.NewDecoder(first.Body).Decode(&receipt))
	assert.Equal(t, models.ID("501"), receipt.Sale.ID)
	assert.Equal(t, "till-4-0001", receipt.IdempotencyKey)
	assert.False(t, receipt.Replayed)

	second := send()
	require.Equal(t, http.StatusOK, second.Code)
	require.NoError(t, json.NewDecoder(second.Body).Decode(&receipt))
	assert.True(t, receipt.Replayed)

	assert.Equal(t, 1, env.backend.sales())

	feedRec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/pos/sales?offset=0", nil)))
	require.Equal(t, http.StatusOK, feedRec.Code)
	assert.NotContains(t, feedRec.Body.String(), "till-4-0001")
	var feed SalesFeedResponse
	require.NoError(t, json.NewDecoder(feedRec.Body).Decode(&feed))
	require.Equal(t, 1, feed.Count)
	assert.Equal(t, models.ID("501"), feed.Events[0].Sale.SaleID)
	assert.Equal(t, 2, feed.Events[0].Sale.ItemCount)
	assert.Equal(t, int64(1), feed.NextOffset)
}

func TestPOS_CheckoutKeyIsScopedToCaller(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"store_id":        "3",
		"payment_method":  "cash",
		"amount_paid":     5,
		"idempotency_key": "cashier-a-key",
		"items":           []map[string]any{{"product_id": "1", "quantity": 2, "unit_price": 1.5}},
	}

	first := env.do(jsonRequest(http.MethodPost, "/api/v1/pos/checkout", body))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	t.Run("other token is not replayed", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/v1/pos/checkout", body)
		req.Header.Set("Authorization", "Bearer garbage")

		rec := env.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotContains(t, rec.Body.String(), "501")
		assert.Equal(t, 1, env.backend.sales())
	})

	t.Run("same key with a different cart", func(t *testing.T) {
		changed := map[string]any{}
		for k, v := range body {
			changed[k] = v
		}
		changed["items"] = []map[string]any{{"product_id": "2", "quantity": 9, "unit_price": 2.5}}

		rec := env.do(jsonRequest(http.MethodPost, "/api/v1/pos/checkout", changed))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "idempotency_key_reused", decodeError(t, rec).Code)
		assert.Equal(t, 1, env.backend.sales())
	})
}

func TestSalesFeed_ScopedToCallerStores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.feed.PublishSale(ctx, models.SaleCompletedEvent{SaleID: "31", StoreID: "3"}))
	require.NoError(t, env.feed.PublishSale(ctx, models.SaleCompletedEvent{SaleID: "91", StoreID: "9"}))

	t.Run("token rejected by the backend", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pos/sales?offset=0", nil)
		req.Header.Set("Authorization", "Bearer garbage")

		rec := env.do(req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotContains(t, rec.Body.String(), "31")
	})

	t.Run("only visible stores", func(t *testing.T) {
		rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/pos/sales?offset=0", nil)))

		require.Equal(t, http.StatusOK, rec.Code)
		var feed SalesFeedResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&feed))
		require.Len(t, feed.Events, 1)
		assert.Equal(t, models.ID("31"), feed.Events[0].Sale.SaleID)
		assert.Equal(t, int64(2), feed.NextOffset)
		assert.Equal(t, "Bearer user-token", env.backend.lastCall(t).Auth)
	})

	t.Run("store outside the caller's list", func(t *testing.T) {
		rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/pos/sales?offset=0&store_id=9", nil)))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestPOS_CheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/pos/checkout", map[string]any{"payment_method": "cash"}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "empty_cart", decodeError(t, rec).Code)
	assert.Equal(t, 0, env.backend.sales())
}

func TestSalesFeed_LongPollWakesOnNewSale(t *testing.T) {
	env := newTestEnv(t)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/pos/sales?offset=0&wait=5", nil)))
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, env.feed.PublishSale(context.Background(), models.SaleCompletedEvent{SaleID: "76", StoreID: "9"}))
	require.NoError(t, env.feed.PublishSale(context.Background(), models.SaleCompletedEvent{SaleID: "77", StoreID: "3"}))

	select {
	case rec := <-done:
		require.Equal(t, http.StatusOK, rec.Code)
		var feed SalesFeedResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&feed))
		require.Len(t, feed.Events, 1)
		assert.Equal(t, models.ID("77"), feed.Events[0].Sale.SaleID)
	case <-time.After(3 * time.Second):
		t.Fatal("long poll did not return after a sale was recorded")
	}
}

func TestSalesFeed_InvalidOffset(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/api/v1/pos/sales?offset=-1", nil)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_RateLimitStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/rate-limit/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/rate-limit/status", nil)
	req.Header.Set("X-Admin-Key", "ops-key")
	rec = env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats middleware.RateLimitStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.False(t, stats.Enabled)
}
