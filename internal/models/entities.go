package models

import "time"

// Product statuses
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Employee statuses
const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"
)

// FilterAll is the sentinel the dashboard sends for "no filter"
const FilterAll = "all"

// Category groups products
type Category struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ProductsCount int    `json:"products_count,omitempty"`
}

// Store is a physical shop location
type Store struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Product is a sellable catalog item
type Product struct {
	ID            ID         `json:"id"`
	Name          string     `json:"name"`
	SKU           string     `json:"sku"`
	Barcode       string     `json:"barcode,omitempty"`
	Description   string     `json:"description,omitempty"`
	Price         float64    `json:"price"`
	CostPrice     float64    `json:"cost_price,omitempty"`
	StockQuantity int        `json:"stock_quantity"`
	MinStockLevel int        `json:"min_stock_level,omitempty"`
	CategoryID    ID         `json:"category_id,omitempty"`
	Category      *Category  `json:"category,omitempty"`
	StoreID       ID         `json:"store_id,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// IsLowStock reports whether stock is at or below the reorder level
func (p Product) IsLowStock() bool {
	return p.MinStockLevel > 0 && p.StockQuantity <= p.MinStockLevel
}

// Customer is a buyer known to the backend
type Customer struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	Status      string     `json:"status,omitempty"`
	TotalOrders int        `json:"total_orders,omitempty"`
	TotalSpent  float64    `json:"total_spent,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Employee is a backend user account (the /users resource)
type Employee struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	StoreID     ID         `json:"store_id,omitempty"`
	Store       *Store     `json:"store,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// OrderItem is a line of an order
type OrderItem struct {
	ID          ID      `json:"id"`
	ProductID   ID      `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// Order is a customer order, including orders created by POS sales
type Order struct {
	ID             ID          `json:"id"`
	OrderNumber    string      `json:"order_number"`
	CustomerID     ID          `json:"customer_id,omitempty"`
	Customer       *Customer   `json:"customer,omitempty"`
	StoreID        ID          `json:"store_id,omitempty"`
	UserID         ID          `json:"user_id,omitempty"`
	Status         string      `json:"status"`
	PaymentStatus  string      `json:"payment_status"`
	PaymentMethod  string      `json:"payment_method,omitempty"`
	Subtotal       float64     `json:"subtotal"`
	TaxAmount      float64     `json:"tax_amount"`
	DiscountAmount float64     `json:"discount_amount"`
	TotalAmount    float64     `json:"total_amount"`
	Notes          string      `json:"notes,omitempty"`
	Items          []OrderItem `json:"items,omitempty"`
	CreatedAt      *time.Time  `json:"created_at,omitempty"`
}

// Sale is the backend's record of a completed POS checkout
type Sale struct {
	ID             ID          `json:"id"`
	OrderNumber    string      `json:"order_number"`
	StoreID        ID          `json:"store_id,omitempty"`
	CustomerID     ID          `json:"customer_id,omitempty"`
	PaymentMethod  string      `json:"payment_method"`
	Subtotal       float64     `json:"subtotal"`
	TaxAmount      float64     `json:"tax_amount"`
	DiscountAmount float64     `json:"discount_amount"`
	TotalAmount    float64     `json:"total_amount"`
	AmountPaid     float64     `json:"amount_paid"`
	ChangeAmount   float64     `json:"change_amount"`
	Items          []OrderItem `json:"items,omitempty"`
	CreatedAt      *time.Time  `json:"created_at,omitempty"`
}

// OrderStats is the payload of GET /orders/stats
type OrderStats struct {
	TotalOrders       int     `json:"total_orders"`
	PendingOrders     int     `json:"pending_orders"`
	ProcessingOrders  int     `json:"processing_orders"`
	CompletedOrders   int     `json:"completed_orders"`
	CancelledOrders   int     `json:"cancelled_orders"`
	TotalRevenue      float64 `json:"total_revenue"`
	TodayRevenue      float64 `json:"today_revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// CustomerStats is the payload of GET /customers/stats
type CustomerStats struct {
	TotalCustomers  int `json:"total_customers"`
	ActiveCustomers int `json:"active_customers"`
	NewThisMonth    int `json:"new_this_month"`
}

// DashboardSummary combines the analytics shown on the dashboard home screen
type DashboardSummary struct {
	Orders    *OrderStats    `json:"orders,omitempty"`
	Customers *CustomerStats `json:"customers,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
}

// SaleCompletedEvent is published after a successful POS checkout
type SaleCompletedEvent struct {
	SaleID        ID        `json:"saleId"`
	OrderNumber   string    `json:"orderNumber"`
	StoreID       ID        `json:"storeId,omitempty"`
	TotalAmount   float64   `json:"totalAmount"`
	ItemCount     int       `json:"itemCount"`
	PaymentMethod string    `json:"paymentMethod"`
	CompletedAt   time.Time `json:"completedAt"`
	// MessageID deduplicates broker deliveries. It is derived from the
	// caller's idempotency key and never serialized.
	MessageID string `json:"-"`
}
