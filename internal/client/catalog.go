package client

import (
	"context"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// CategoriesClient wraps GET /categories
type CategoriesClient struct {
	res *Resource[models.Category]
}

func NewCategoriesClient(api *APIClient) *CategoriesClient {
	return &CategoriesClient{res: NewResource[models.Category](api, "categories")}
}

func (c *CategoriesClient) List(ctx context.Context, filters models.CatalogFilters) (*models.PaginatedEnvelope[models.Category], error) {
	return c.res.List(ctx, filters)
}

// StoresClient wraps GET /stores
type StoresClient struct {
	res *Resource[models.Store]
}

func NewStoresClient(api *APIClient) *StoresClient {
	return &StoresClient{res: NewResource[models.Store](api, "stores")}
}

func (c *StoresClient) List(ctx context.Context, filters models.CatalogFilters) (*models.PaginatedEnvelope[models.Store], error) {
	return c.res.List(ctx, filters)
}

// SalesClient wraps POST /sales, the POS checkout endpoint
type SalesClient struct {
	res *Resource[models.Sale]
}

func NewSalesClient(api *APIClient) *SalesClient {
	return &SalesClient{res: NewResource[models.Sale](api, "sales")}
}

// Create submits a sale. It is never retried.
func (c *SalesClient) Create(ctx context.Context, input models.SaleInput) (*models.Envelope[models.Sale], error) {
	return c.res.Create(ctx, input)
}

// Clients bundles every resource client over one transport
type Clients struct {
	API        *APIClient
	Products   *ProductsClient
	Orders     *OrdersClient
	Customers  *CustomersClient
	Employees  *EmployeesClient
	Categories *CategoriesClient
	Stores     *StoresClient
	Sales      *SalesClient
}

// NewClients wires all resource clients to api
func NewClients(api *APIClient) *Clients {
	return &Clients{
		API:        api,
		Products:   NewProductsClient(api),
		Orders:     NewOrdersClient(api),
		Customers:  NewCustomersClient(api),
		Employees:  NewEmployeesClient(api),
		Categories: NewCategoriesClient(api),
		Stores:     NewStoresClient(api),
		Sales:      NewSalesClient(api),
	}
}
