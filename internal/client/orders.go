package client

import (
	"context"
	"net/http"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// OrdersClient wraps the /orders resource. Orders are created through POS
// sales, never directly.
type OrdersClient struct {
	res *Resource[models.Order]
}

// NewOrdersClient creates an orders client on the shared transport
func NewOrdersClient(api *APIClient) *OrdersClient {
	return &OrdersClient{res: NewResource[models.Order](api, "orders")}
}

// List returns a filtered page of orders
func (c *OrdersClient) List(ctx context.Context, filters models.OrderFilters) (*models.PaginatedEnvelope[models.Order], error) {
	return c.res.List(ctx, filters)
}

// Get returns a single order with its items
func (c *OrdersClient) Get(ctx context.Context, id models.ID) (*models.Envelope[models.Order], error) {
	return c.res.Get(ctx, id)
}

// UpdateStatus sends PATCH /orders/{id}/status
func (c *OrdersClient) UpdateStatus(ctx context.Context, id models.ID, status string) (*models.Envelope[models.Order], error) {
	return c.res.Action(ctx, http.MethodPatch, id, "status", models.OrderStatusUpdate{Status: status})
}

// UpdatePaymentStatus sends PATCH /orders/{id}/payment-status
func (c *OrdersClient) UpdatePaymentStatus(ctx context.Context, id models.ID, paymentStatus string) (*models.Envelope[models.Order], error) {
	return c.res.Action(ctx, http.MethodPatch, id, "payment-status", models.PaymentStatusUpdate{PaymentStatus: paymentStatus})
}

// Delete removes an order
func (c *OrdersClient) Delete(ctx context.Context, id models.ID) error {
	return c.res.Delete(ctx, id)
}

// Stats returns GET /orders/stats
func (c *OrdersClient) Stats(ctx context.Context, filters models.StatsFilters) (*models.Envelope[models.OrderStats], error) {
	var env models.Envelope[models.OrderStats]
	if err := c.res.Stats(ctx, filters, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
