package client

import (
	"context"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// CustomersClient wraps the /customers resource
type CustomersClient struct {
	res *Resource[models.Customer]
}

// NewCustomersClient creates a customers client on the shared transport
func NewCustomersClient(api *APIClient) *CustomersClient {
	return &CustomersClient{res: NewResource[models.Customer](api, "customers")}
}

func (c *CustomersClient) List(ctx context.Context, filters models.CustomerFilters) (*models.PaginatedEnvelope[models.Customer], error) {
	return c.res.List(ctx, filters)
}

func (c *CustomersClient) Get(ctx context.Context, id models.ID) (*models.Envelope[models.Customer], error) {
	return c.res.Get(ctx, id)
}

func (c *CustomersClient) Create(ctx context.Context, input models.CustomerInput) (*models.Envelope[models.Customer], error) {
	return c.res.Create(ctx, input)
}

func (c *CustomersClient) Update(ctx context.Context, id models.ID, input models.CustomerUpdate) (*models.Envelope[models.Customer], error) {
	return c.res.Update(ctx, id, input)
}

func (c *CustomersClient) Delete(ctx context.Context, id models.ID) error {
	return c.res.Delete(ctx, id)
}

// Stats returns GET /customers/stats
func (c *CustomersClient) Stats(ctx context.Context) (*models.Envelope[models.CustomerStats], error) {
	var env models.Envelope[models.CustomerStats]
	if err := c.res.Stats(ctx, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
