package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// Resource maps one backend collection ({base}/{path}) to its REST
// operations. It is stateless apart from the shared transport.
type Resource[T any] struct {
	api  *APIClient
	path string
}

// NewResource binds a collection path to the shared transport
func NewResource[T any](api *APIClient, path string) *Resource[T] {
	return &Resource[T]{api: api, path: path}
}

// Path returns the collection path
func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) itemPath(id models.ID, extra ...string) string {
	p := r.path + "/" + url.PathEscape(id.String())
	for _, seg := range extra {
		p += "/" + seg
	}
	return p
}

// List fetches one page of the collection. An empty page is a success.
func (r *Resource[T]) List(ctx context.Context, filters any) (*models.PaginatedEnvelope[T], error) {
	query, err := EncodeFilters(filters)
	if err != nil {
		return nil, err
	}

	var page models.PaginatedEnvelope[T]
	if err := r.api.do(ctx, http.MethodGet, r.path, query, nil, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return &page, nil
}

// Get fetches a single record
func (r *Resource[T]) Get(ctx context.Context, id models.ID) (*models.Envelope[T], error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%s: id is required", r.path)
	}

	var env models.Envelope[T]
	if err := r.api.do(ctx, http.MethodGet, r.itemPath(id), nil, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Create posts a JSON creation payload
func (r *Resource[T]) Create(ctx context.Context, input any) (*models.Envelope[T], error) {
	return r.send(ctx, http.MethodPost, r.path, nil, jsonBody{value: input})
}

// Update replaces the given fields of a record with PUT
func (r *Resource[T]) Update(ctx context.Context, id models.ID, input any) (*models.Envelope[T], error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%s: id is required", r.path)
	}
	return r.send(ctx, http.MethodPut, r.itemPath(id), nil, jsonBody{value: input})
}

// Delete removes a record. Deleting an already deleted record surfaces NotFound.
func (r *Resource[T]) Delete(ctx context.Context, id models.ID) error {
	if id.IsZero() {
		return fmt.Errorf("%s: id is required", r.path)
	}
	return r.api.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil)
}

// Action calls a narrow per-record endpoint such as PATCH {path}/{id}/status.
// A nil payload sends no body.
func (r *Resource[T]) Action(ctx context.Context, method string, id models.ID, action string, payload any) (*models.Envelope[T], error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%s: id is required", r.path)
	}
	var body requestBody
	if payload != nil {
		body = jsonBody{value: payload}
	}
	return r.send(ctx, method, r.itemPath(id, action), nil, body)
}

// Stats fetches GET {path}/stats into out
func (r *Resource[T]) Stats(ctx context.Context, filters any, out any) error {
	query, err := EncodeFilters(filters)
	if err != nil {
		return err
	}
	return r.api.do(ctx, http.MethodGet, r.path+"/stats", query, nil, out)
}

func (r *Resource[T]) send(ctx context.Context, method, path string, query url.Values, body requestBody) (*models.Envelope[T], error) {
	var env models.Envelope[T]
	if err := r.api.do(ctx, method, path, query, body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
