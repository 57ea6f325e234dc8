package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// ProductsClient wraps the /products resource
type ProductsClient struct {
	res *Resource[models.Product]
}

// NewProductsClient creates a products client on the shared transport
func NewProductsClient(api *APIClient) *ProductsClient {
	return &ProductsClient{res: NewResource[models.Product](api, "products")}
}

// List returns a filtered page of products
func (c *ProductsClient) List(ctx context.Context, filters models.ProductFilters) (*models.PaginatedEnvelope[models.Product], error) {
	return c.res.List(ctx, filters)
}

// Search runs the POS lookup GET /products?search=term
func (c *ProductsClient) Search(ctx context.Context, term string, perPage int) (*models.PaginatedEnvelope[models.Product], error) {
	return c.res.List(ctx, models.ProductFilters{Search: term, PerPage: perPage})
}

// Get returns a single product
func (c *ProductsClient) Get(ctx context.Context, id models.ID) (*models.Envelope[models.Product], error) {
	return c.res.Get(ctx, id)
}

// Create posts a new product, as multipart when an image is attached
func (c *ProductsClient) Create(ctx context.Context, input models.ProductInput) (*models.Envelope[models.Product], error) {
	if input.Image != nil {
		return c.res.send(ctx, http.MethodPost, c.res.path, nil, newMultipartBody(input, "image", input.Image))
	}
	return c.res.Create(ctx, input)
}

// Update applies a partial update. With method override enabled the request
// is tunneled as POST /products/{id}?_method=PUT, which the backend needs for
// multipart bodies.
func (c *ProductsClient) Update(ctx context.Context, id models.ID, input models.ProductUpdate) (*models.Envelope[models.Product], error) {
	if id.IsZero() {
		return nil, fmt.Errorf("products: id is required")
	}

	var body requestBody = jsonBody{value: input}
	if input.Image != nil {
		body = newMultipartBody(input, "image", input.Image)
	}

	if c.res.api.methodOverride {
		query := url.Values{"_method": {http.MethodPut}}
		return c.res.send(ctx, http.MethodPost, c.res.itemPath(id), query, body)
	}
	return c.res.send(ctx, http.MethodPut, c.res.itemPath(id), nil, body)
}

// Delete removes a product
func (c *ProductsClient) Delete(ctx context.Context, id models.ID) error {
	return c.res.Delete(ctx, id)
}
