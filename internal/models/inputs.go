package models

// FileUpload is a binary attachment sent as a multipart part
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductInput is the full creation payload for a product
type ProductInput struct {
	Name          string      `json:"name"`
	SKU           string      `json:"sku"`
	Barcode       string      `json:"barcode,omitempty"`
	Description   string      `json:"description,omitempty"`
	Price         float64     `json:"price"`
	CostPrice     float64     `json:"cost_price,omitempty"`
	StockQuantity int         `json:"stock_quantity"`
	MinStockLevel int         `json:"min_stock_level,omitempty"`
	CategoryID    ID          `json:"category_id,omitempty"`
	StoreID       ID          `json:"store_id,omitempty"`
	Status        string      `json:"status,omitempty"`
	Image         *FileUpload `json:"-"`
}

// ProductUpdate is a partial product update; nil fields are left unchanged
type ProductUpdate struct {
	Name          *string     `json:"name,omitempty"`
	SKU           *string     `json:"sku,omitempty"`
	Barcode       *string     `json:"barcode,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Price         *float64    `json:"price,omitempty"`
	CostPrice     *float64    `json:"cost_price,omitempty"`
	StockQuantity *int        `json:"stock_quantity,omitempty"`
	MinStockLevel *int        `json:"min_stock_level,omitempty"`
	CategoryID    *ID         `json:"category_id,omitempty"`
	StoreID       *ID         `json:"store_id,omitempty"`
	Status        *string     `json:"status,omitempty"`
	Image         *FileUpload `json:"-"`
}

// CustomerInput is the creation payload for a customer
type CustomerInput struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Status  string `json:"status,omitempty"`
}

// CustomerUpdate is a partial customer update
type CustomerUpdate struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Status  *string `json:"status,omitempty"`
}

// EmployeeInput is the creation payload for a user account
type EmployeeInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
	StoreID  ID     `json:"store_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

// EmployeeUpdate is a partial user account update
type EmployeeUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Role     *string `json:"role,omitempty"`
	StoreID  *ID     `json:"store_id,omitempty"`
}

// OrderStatusUpdate is the body of PATCH /orders/{id}/status
type OrderStatusUpdate struct {
	Status string `json:"status"`
}

// PaymentStatusUpdate is the body of PATCH /orders/{id}/payment-status
type PaymentStatusUpdate struct {
	PaymentStatus string `json:"payment_status"`
}

// EmployeeStatusUpdate is the body of PATCH /users/{id}/status
type EmployeeStatusUpdate struct {
	Status string `json:"status"`
}

// SaleItemInput is one cart line submitted at checkout
type SaleItemInput struct {
	ProductID ID      `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// SaleInput is the body of POST /sales
type SaleInput struct {
	StoreID        ID              `json:"store_id,omitempty"`
	CustomerID     ID              `json:"customer_id,omitempty"`
	PaymentMethod  string          `json:"payment_method"`
	AmountPaid     float64         `json:"amount_paid"`
	DiscountAmount float64         `json:"discount_amount,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Items          []SaleItemInput `json:"items"`
}
