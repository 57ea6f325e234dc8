package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an opaque backend identifier. The backend may send it as a JSON
// number or string; it is always carried and re-encoded as a string.
type ID string

// UnmarshalJSON accepts both `42` and `"42"`
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as a string
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the identifier is empty
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Envelope wraps every backend reply. Data is only meaningful when Success is true.
type Envelope[T any] struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    T                   `json:"data"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// PaginationMeta is the pagination contract shared by every list endpoint.
// Total counts rows across all pages, not len(data).
type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// HasNextPage reports whether a later page exists
func (m PaginationMeta) HasNextPage() bool {
	return m.CurrentPage < m.LastPage
}

// HasPrevPage reports whether an earlier page exists
func (m PaginationMeta) HasPrevPage() bool {
	return m.CurrentPage > 1
}

// PaginationLinks mirrors the backend's navigation links
type PaginationLinks struct {
	First string  `json:"first,omitempty"`
	Last  string  `json:"last,omitempty"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

// PaginatedEnvelope is the envelope returned by list endpoints
type PaginatedEnvelope[T any] struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Data    []T              `json:"data"`
	Meta    *PaginationMeta  `json:"meta,omitempty"`
	Links   *PaginationLinks `json:"links,omitempty"`
}

// Pagination returns the envelope's metadata, or a single-page view of Data
// when the backend sent no meta block.
func (p *PaginatedEnvelope[T]) Pagination() PaginationMeta {
	if p.Meta != nil {
		return *p.Meta
	}
	n := len(p.Data)
	return PaginationMeta{
		CurrentPage: 1,
		LastPage:    1,
		PerPage:     n,
		Total:       n,
	}
}

// ErrorResponse is the error body written by the dashboard server
type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}
