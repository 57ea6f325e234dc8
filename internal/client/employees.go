package client

import (
	"context"
	"net/http"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// EmployeesClient wraps the backend /users resource
type EmployeesClient struct {
	res *Resource[models.Employee]
}

// NewEmployeesClient creates an employees client on the shared transport
func NewEmployeesClient(api *APIClient) *EmployeesClient {
	return &EmployeesClient{res: NewResource[models.Employee](api, "users")}
}

func (c *EmployeesClient) List(ctx context.Context, filters models.EmployeeFilters) (*models.PaginatedEnvelope[models.Employee], error) {
	return c.res.List(ctx, filters)
}

func (c *EmployeesClient) Create(ctx context.Context, input models.EmployeeInput) (*models.Envelope[models.Employee], error) {
	return c.res.Create(ctx, input)
}

func (c *EmployeesClient) Update(ctx context.Context, id models.ID, input models.EmployeeUpdate) (*models.Envelope[models.Employee], error) {
	return c.res.Update(ctx, id, input)
}

// UpdateStatus sends PATCH /users/{id}/status
func (c *EmployeesClient) UpdateStatus(ctx context.Context, id models.ID, status string) (*models.Envelope[models.Employee], error) {
	return c.res.Action(ctx, http.MethodPatch, id, "status", models.EmployeeStatusUpdate{Status: status})
}

// RecordLogin sends POST /users/{id}/login, which stamps last_login_at
func (c *EmployeesClient) RecordLogin(ctx context.Context, id models.ID) (*models.Envelope[models.Employee], error) {
	return c.res.Action(ctx, http.MethodPost, id, "login", nil)
}

func (c *EmployeesClient) Delete(ctx context.Context, id models.ID) error {
	return c.res.Delete(ctx, id)
}
