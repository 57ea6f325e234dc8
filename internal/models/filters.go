package models

// Filter structs are encoded to query strings by the resource client and
// decoded from incoming query strings by the dashboard server. Zero values
// are omitted; the "all" sentinel is dropped by the encoder.

// ProductFilters filters GET /products
type ProductFilters struct {
	Page       int    `schema:"page,omitempty" default:"1"`
	PerPage    int    `schema:"per_page,omitempty" default:"10"`
	Search     string `schema:"search,omitempty"`
	Status     string `schema:"status,omitempty"`
	CategoryID ID     `schema:"category_id,omitempty"`
	StoreID    ID     `schema:"store_id,omitempty"`
}

// OrderFilters filters GET /orders. Dates are YYYY-MM-DD.
type OrderFilters struct {
	Page          int    `schema:"page,omitempty" default:"1"`
	PerPage       int    `schema:"per_page,omitempty" default:"10"`
	Search        string `schema:"search,omitempty"`
	Status        string `schema:"status,omitempty"`
	PaymentStatus string `schema:"payment_status,omitempty"`
	CustomerID    ID     `schema:"customer_id,omitempty"`
	StoreID       ID     `schema:"store_id,omitempty"`
	DateFrom      string `schema:"date_from,omitempty"`
	DateTo        string `schema:"date_to,omitempty"`
}

// CustomerFilters filters GET /customers
type CustomerFilters struct {
	Page    int    `schema:"page,omitempty" default:"1"`
	PerPage int    `schema:"per_page,omitempty" default:"10"`
	Search  string `schema:"search,omitempty"`
	Status  string `schema:"status,omitempty"`
}

// EmployeeFilters filters GET /users
type EmployeeFilters struct {
	Page    int    `schema:"page,omitempty" default:"1"`
	PerPage int    `schema:"per_page,omitempty" default:"10"`
	Search  string `schema:"search,omitempty"`
	Status  string `schema:"status,omitempty"`
	Role    string `schema:"role,omitempty"`
	StoreID ID     `schema:"store_id,omitempty"`
}

// CatalogFilters filters the unpaginated lookup lists (categories, stores)
type CatalogFilters struct {
	Search string `schema:"search,omitempty"`
}

// StatsFilters narrows the analytics endpoints
type StatsFilters struct {
	StoreID  ID     `schema:"store_id,omitempty"`
	DateFrom string `schema:"date_from,omitempty"`
	DateTo   string `schema:"date_to,omitempty"`
}
