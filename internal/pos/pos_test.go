package pos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
)

type fakeProducts struct {
	results []models.Product
	err     error
	terms   []string
}

func (f *fakeProducts) Search(_ context.Context, term string, _ int) (*models.PaginatedEnvelope[models.Product], error) {
	f.terms = append(f.terms, term)
	if f.err != nil {
		return nil, f.err
	}
	return &models.PaginatedEnvelope[models.Product]{Success: true, Data: f.results}, nil
}

type fakeSales struct {
	mu     sync.Mutex
	inputs []models.SaleInput
	err    error
	block  chan struct{}
}

func (f *fakeSales) Create(_ context.Context, input models.SaleInput) (*models.Envelope[models.Sale], error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Envelope[models.Sale]{Success: true, Data: models.Sale{
		ID:            "501",
		OrderNumber:   "ORD-501",
		PaymentMethod: input.PaymentMethod,
		TotalAmount:   9.9,
		AmountPaid:    input.AmountPaid,
	}}, nil
}

func (f *fakeSales) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SaleCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishSale(_ context.Context, e models.SaleCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

var (
	milk  = models.Product{ID: "1", Name: "Milk", SKU: "MLK-1", Barcode: "8991001", Price: 1.5}
	eggs  = models.Product{ID: "2", Name: "Eggs", SKU: "EGG-12", Barcode: "8991002", Price: 3.2}
	milk2 = models.Product{ID: "3", Name: "Milk Lite", SKU: "MLK-2", Barcode: "8991009", Price: 1.7}
)

func newTestRegister(t *testing.T, products *fakeProducts, sales *fakeSales, pub *recordingPublisher) *Register {
	t.Helper()
	r := NewRegister(products, sales, RegisterConfig{DedupeTTL: time.Minute, Publisher: pub})
	t.Cleanup(r.Close)
	return r
}

func TestCart_Lines(t *testing.T) {
	cart := NewCart()

	require.NoError(t, cart.AddProduct(milk, 2))
	require.NoError(t, cart.AddProduct(eggs, 1))
	require.NoError(t, cart.AddProduct(milk, 1))
	assert.ErrorIs(t, cart.AddProduct(eggs, 0), ErrInvalidQuantity)

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, models.ID("1"), lines[0].Product.ID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 4, cart.ItemCount())
	assert.InDelta(t, 7.7, cart.Subtotal(), 0.0001)

	assert.True(t, cart.SetQuantity("2", 5))
	assert.False(t, cart.SetQuantity("9", 5))
	assert.Equal(t, 8, cart.ItemCount())

	assert.True(t, cart.SetQuantity("2", 0))
	assert.Len(t, cart.Lines(), 1)

	assert.True(t, cart.Remove("1"))
	assert.True(t, cart.IsEmpty())
}

func TestRegister_Lookup(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		results  []models.Product
		expected models.ID
		err      error
	}{
		{name: "exact barcode among many", code: "8991001", results: []models.Product{milk, milk2}, expected: "1"},
		{name: "sku match ignores case", code: "egg-12", results: []models.Product{eggs, milk}, expected: "2"},
		{name: "single fuzzy result", code: "eggs", results: []models.Product{eggs}, expected: "2"},
		{name: "no result", code: "caviar", results: nil, err: ErrProductNotFound},
		{name: "several fuzzy results", code: "milk", results: []models.Product{milk, milk2}, err: ErrAmbiguousProduct},
		{name: "blank code", code: "   ", err: ErrProductNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			products := &fakeProducts{results: tc.results}
			r := newTestRegister(t, products, &fakeSales{}, &recordingPublisher{})

			// Act
			p, err := r.Lookup(context.Background(), tc.code)

			// Assert
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p.ID)
		})
	}
}

func TestRegister_LookupPassesBackendErrors(t *testing.T) {
	transportErr := &client.TransportError{Method: "GET", URL: "/products", Err: errors.New("refused")}
	r := newTestRegister(t, &fakeProducts{err: transportErr}, &fakeSales{}, &recordingPublisher{})

	_, err := r.Lookup(context.Background(), "8991001")
	assert.Equal(t, client.KindTransport, client.KindOf(err))
}

func TestRegister_CheckoutEmptyCart(t *testing.T) {
	sales := &fakeSales{}
	r := newTestRegister(t, &fakeProducts{}, sales, &recordingPublisher{})

	_, err := r.Checkout(context.Background(), NewCart(), CheckoutRequest{PaymentMethod: "cash"})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 0, sales.calls())
}

func TestRegister_CheckoutSubmitsAndClears(t *testing.T) {
	// Arrange
	sales := &fakeSales{}
	pub := &recordingPublisher{}
	r := newTestRegister(t, &fakeProducts{}, sales, pub)

	cart := NewCart()
	require.NoError(t, cart.AddProduct(milk, 2))
	require.NoError(t, cart.AddProduct(eggs, 1))

	// Act
	receipt, err := r.Checkout(context.Background(), cart, CheckoutRequest{
		StoreID:       "7",
		PaymentMethod: "cash",
		AmountPaid:    10,
	})

	// Assert
	require.NoError(t, err)
	assert.False(t, receipt.Replayed)
	assert.NotEmpty(t, receipt.IdempotencyKey)
	assert.Equal(t, "ORD-501", receipt.Sale.OrderNumber)
	assert.True(t, cart.IsEmpty())

	require.Equal(t, 1, sales.calls())
	input := sales.inputs[0]
	assert.Equal(t, models.ID("7"), input.StoreID)
	assert.Equal(t, []models.SaleItemInput{
		{ProductID: "1", Quantity: 2, UnitPrice: 1.5},
		{ProductID: "2", Quantity: 1, UnitPrice: 3.2},
	}, input.Items)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.ID("501"), pub.events[0].SaleID)
	assert.Equal(t, models.ID("7"), pub.events[0].StoreID)
	assert.Equal(t, 3, pub.events[0].ItemCount)
	assert.Equal(t, scopedKey("", receipt.IdempotencyKey), pub.events[0].MessageID)
}

func TestRegister_DuplicateKeyIsReplayed(t *testing.T) {
	sales := &fakeSales{}
	pub := &recordingPublisher{}
	r := newTestRegister(t, &fakeProducts{}, sales, pub)

	items := []models.SaleItemInput{{ProductID: "1", Quantity: 1, UnitPrice: 1.5}}
	req := CheckoutRequest{PaymentMethod: "card", AmountPaid: 1.5, IdempotencyKey: "till-3-0001"}

	first, err := r.Submit(context.Background(), items, req)
	require.NoError(t, err)
	second, err := r.Submit(context.Background(), items, req)
	require.NoError(t, err)

	assert.Equal(t, 1, sales.calls())
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Sale, second.Sale)
	assert.Len(t, pub.events, 1)
}

func TestRegister_KeysAreScopedToTheCaller(t *testing.T) {
	sales := &fakeSales{}
	r := newTestRegister(t, &fakeProducts{}, sales, &recordingPublisher{})

	items := []models.SaleItemInput{{ProductID: "1", Quantity: 1, UnitPrice: 1.5}}
	req := CheckoutRequest{PaymentMethod: "cash", IdempotencyKey: "cashier-a-key"}

	first, err := r.Submit(client.WithToken(context.Background(), "cashier-a"), items, req)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	other, err := r.Submit(client.WithToken(context.Background(), "cashier-b"), items, req)
	require.NoError(t, err)
	assert.False(t, other.Replayed, "another caller's key is never replayed")
	assert.Equal(t, 2, sales.calls())
}

func TestRegister_ReusedKeyWithDifferentSaleRejected(t *testing.T) {
	sales := &fakeSales{}
	r := newTestRegister(t, &fakeProducts{}, sales, &recordingPublisher{})
	ctx := client.WithToken(context.Background(), "cashier-a")

	req := CheckoutRequest{PaymentMethod: "cash", IdempotencyKey: "till-1"}
	_, err := r.Submit(ctx, []models.SaleItemInput{{ProductID: "1", Quantity: 1}}, req)
	require.NoError(t, err)

	_, err = r.Submit(ctx, []models.SaleItemInput{{ProductID: "2", Quantity: 5}}, req)
	assert.ErrorIs(t, err, ErrKeyReused)

	req.AmountPaid = 50
	_, err = r.Submit(ctx, []models.SaleItemInput{{ProductID: "1", Quantity: 1}}, req)
	assert.ErrorIs(t, err, ErrKeyReused)
	assert.Equal(t, 1, sales.calls())
}

func TestRegister_ConcurrentSameKeyRejected(t *testing.T) {
	sales := &fakeSales{block: make(chan struct{})}
	r := newTestRegister(t, &fakeProducts{}, sales, &recordingPublisher{})

	items := []models.SaleItemInput{{ProductID: "1", Quantity: 1}}
	req := CheckoutRequest{PaymentMethod: "cash", IdempotencyKey: "dup"}

	done := make(chan error, 1)
	go func() {
		_, err := r.Submit(context.Background(), items, req)
		done <- err
	}()

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		_, busy := r.inflight[scopedKey("", "dup")]
		return busy
	}, time.Second, 5*time.Millisecond)

	_, err := r.Submit(context.Background(), items, req)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	close(sales.block)
	assert.NoError(t, <-done)
	assert.Equal(t, 1, sales.calls())
}

func TestRegister_ValidationErrorReturnedUntouched(t *testing.T) {
	verr := &client.ValidationError{
		HTTPError: client.HTTPError{Status: 422, Message: "Insufficient stock for Milk"},
		Fields:    map[string][]string{"items.0.quantity": {"Insufficient stock"}},
	}
	sales := &fakeSales{err: verr}
	pub := &recordingPublisher{}
	r := newTestRegister(t, &fakeProducts{}, sales, pub)

	cart := NewCart()
	require.NoError(t, cart.AddProduct(milk, 99))

	_, err := r.Checkout(context.Background(), cart, CheckoutRequest{PaymentMethod: "cash", IdempotencyKey: "k1"})
	require.Error(t, err)
	assert.Same(t, verr, err)
	assert.False(t, cart.IsEmpty(), "cart survives a failed checkout")
	assert.Empty(t, pub.events)

	// a failed key is not remembered
	sales.err = nil
	receipt, err := r.Checkout(context.Background(), cart, CheckoutRequest{PaymentMethod: "cash", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.False(t, receipt.Replayed)
	assert.Equal(t, 2, sales.calls())
}

func TestRegister_PublishFailureDoesNotFailCheckout(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	r := newTestRegister(t, &fakeProducts{}, &fakeSales{}, pub)

	_, err := r.Submit(context.Background(), []models.SaleItemInput{{ProductID: "1", Quantity: 1}}, CheckoutRequest{PaymentMethod: "cash"})
	assert.NoError(t, err)
	assert.Equal(t, 1, r.DedupeStats().ActiveEntries)
}
