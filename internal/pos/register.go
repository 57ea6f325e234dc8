// Package pos implements the point-of-sale register: barcode lookup, a cart,
// and a checkout that submits each sale to the backend at most once per
// idempotency key.
package pos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melibackend/retail-dashboard/internal/cache"
	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/events"
	"github.com/melibackend/retail-dashboard/internal/models"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductNotFound    = errors.New("product not found")
	ErrAmbiguousProduct   = errors.New("code matches more than one product")
	ErrCheckoutInProgress = errors.New("checkout with this idempotency key is already in progress")
	ErrKeyReused          = errors.New("idempotency key was already used for a different sale")
)

const lookupPageSize = 20

// ProductSearcher is the product search used by Lookup
type ProductSearcher interface {
	Search(ctx context.Context, term string, perPage int) (*models.PaginatedEnvelope[models.Product], error)
}

// SaleCreator submits sales to the backend
type SaleCreator interface {
	Create(ctx context.Context, input models.SaleInput) (*models.Envelope[models.Sale], error)
}

// RegisterConfig tunes a Register
type RegisterConfig struct {
	// DedupeTTL is how long a completed checkout is remembered by key
	DedupeTTL time.Duration
	Publisher events.Publisher
	Logger    *slog.Logger
}

// CheckoutRequest carries the payment details of a checkout
type CheckoutRequest struct {
	StoreID        models.ID `json:"store_id,omitempty"`
	CustomerID     models.ID `json:"customer_id,omitempty"`
	PaymentMethod  string    `json:"payment_method"`
	AmountPaid     float64   `json:"amount_paid"`
	DiscountAmount float64   `json:"discount_amount,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	// IdempotencyKey identifies the checkout attempt; one is generated when empty
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Receipt is the result of a checkout
type Receipt struct {
	Sale           models.Sale `json:"sale"`
	IdempotencyKey string      `json:"idempotency_key"`
	// Replayed is true when the sale was returned from an earlier submission
	Replayed bool `json:"replayed"`
}

// completedCheckout is what the dedupe cache remembers per key
type completedCheckout struct {
	sale        models.Sale
	fingerprint string
}

// Register runs lookups and checkouts against the backend. Idempotency keys
// are scoped to the caller's token, so one caller can never replay another's
// sale.
type Register struct {
	products  ProductSearcher
	sales     SaleCreator
	dedupe    *cache.TTLCache[string, completedCheckout]
	publisher events.Publisher
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewRegister creates a register. Call Close to stop its dedupe cache.
func NewRegister(products ProductSearcher, sales SaleCreator, cfg RegisterConfig) *Register {
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 10 * time.Minute
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Register{
		products:  products,
		sales:     sales,
		dedupe:    cache.NewTTLCache[string, completedCheckout]("checkout_dedupe", cfg.DedupeTTL, cfg.DedupeTTL/2),
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		inflight:  make(map[string]struct{}),
	}
}

// Lookup resolves a scanned or typed code to one product. An exact barcode
// or SKU match wins; otherwise the search must return a single product.
func (r *Register) Lookup(ctx context.Context, code string) (models.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Product{}, fmt.Errorf("%w: empty code", ErrProductNotFound)
	}

	page, err := r.products.Search(ctx, code, lookupPageSize)
	if err != nil {
		return models.Product{}, err
	}

	var exact []models.Product
	for _, p := range page.Data {
		if p.Barcode == code || strings.EqualFold(p.SKU, code) {
			exact = append(exact, p)
		}
	}

	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) > 1:
		return models.Product{}, fmt.Errorf("%w: %q", ErrAmbiguousProduct, code)
	case len(page.Data) == 1:
		return page.Data[0], nil
	case len(page.Data) == 0:
		return models.Product{}, fmt.Errorf("%w: %q", ErrProductNotFound, code)
	default:
		return models.Product{}, fmt.Errorf("%w: %q matched %d products", ErrAmbiguousProduct, code, len(page.Data))
	}
}

// Checkout submits the cart as one sale and clears it on success
func (r *Register) Checkout(ctx context.Context, cart *Cart, req CheckoutRequest) (*Receipt, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	receipt, err := r.Submit(ctx, cart.saleItems(), req)
	if err != nil {
		return nil, err
	}
	cart.Clear()
	return receipt, nil
}

// Submit posts a sale built from items. A key already completed within the
// dedupe TTL returns the earlier sale without calling the backend. Backend
// errors are returned as is.
func (r *Register) Submit(ctx context.Context, items []models.SaleItemInput, req CheckoutRequest) (*Receipt, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	input := models.SaleInput{
		StoreID:        req.StoreID,
		CustomerID:     req.CustomerID,
		PaymentMethod:  req.PaymentMethod,
		AmountPaid:     req.AmountPaid,
		DiscountAmount: req.DiscountAmount,
		Notes:          req.Notes,
		Items:          items,
	}
	fingerprint, err := saleFingerprint(input)
	if err != nil {
		return nil, err
	}
	scoped := scopedKey(client.TokenFromContext(ctx), key)

	if receipt, err := r.replay(scoped, key, fingerprint); receipt != nil || err != nil {
		return receipt, err
	}

	if !r.begin(scoped) {
		return nil, ErrCheckoutInProgress
	}
	defer r.end(scoped)

	// a concurrent submit may have completed between the lookup and begin
	if receipt, err := r.replay(scoped, key, fingerprint); receipt != nil || err != nil {
		return receipt, err
	}

	start := time.Now()
	env, err := r.sales.Create(ctx, input)
	if err != nil {
		r.logger.Warn("Checkout failed",
			"idempotency_key", key,
			"items", len(items),
			"error", err)
		return nil, err
	}

	sale := env.Data
	r.dedupe.Set(scoped, completedCheckout{sale: sale, fingerprint: fingerprint})

	itemCount := 0
	for _, it := range items {
		itemCount += it.Quantity
	}

	r.logger.Info("Checkout completed",
		"idempotency_key", key,
		"sale_id", sale.ID.String(),
		"order_number", sale.OrderNumber,
		"total_amount", sale.TotalAmount,
		"duration_ms", time.Since(start).Milliseconds())

	event := models.SaleCompletedEvent{
		SaleID:        sale.ID,
		OrderNumber:   sale.OrderNumber,
		StoreID:       firstNonZero(sale.StoreID, req.StoreID),
		TotalAmount:   sale.TotalAmount,
		ItemCount:     itemCount,
		PaymentMethod: firstNonEmpty(sale.PaymentMethod, req.PaymentMethod),
		CompletedAt:   time.Now().UTC(),
		MessageID:     scoped,
	}
	if err := r.publisher.PublishSale(ctx, event); err != nil {
		r.logger.Warn("Failed to publish sale event", "sale_id", sale.ID.String(), "error", err)
	}

	return &Receipt{Sale: sale, IdempotencyKey: key}, nil
}

// Close releases the dedupe cache
func (r *Register) Close() {
	r.dedupe.Stop()
}

// DedupeStats reports the checkout dedupe cache
func (r *Register) DedupeStats() cache.Stats {
	return r.dedupe.GetStats()
}

// replay returns the remembered receipt for scoped, or ErrKeyReused when the
// key completed a different sale. Both are nil when the key is unseen.
func (r *Register) replay(scoped, key, fingerprint string) (*Receipt, error) {
	done, ok := r.dedupe.Get(scoped)
	if !ok {
		return nil, nil
	}
	if done.fingerprint != fingerprint {
		r.logger.Warn("Idempotency key reused with a different sale", "idempotency_key", key, "sale_id", done.sale.ID.String())
		return nil, ErrKeyReused
	}
	r.logger.Info("Checkout replayed from dedupe cache", "idempotency_key", key, "sale_id", done.sale.ID.String())
	return &Receipt{Sale: done.sale, IdempotencyKey: key, Replayed: true}, nil
}

// scopedKey binds key to the caller's token without keeping the token itself
func scopedKey(token, key string) string {
	sum := sha256.Sum256([]byte(token + "\x00" + key))
	return hex.EncodeToString(sum[:])
}

func saleFingerprint(input models.SaleInput) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint sale: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (r *Register) begin(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[key]; busy {
		return false
	}
	r.inflight[key] = struct{}{}
	return true
}

func (r *Register) end(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, key)
}

func firstNonZero(ids ...models.ID) models.ID {
	for _, id := range ids {
		if !id.IsZero() {
			return id
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
