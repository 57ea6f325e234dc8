package pos

import (
	"errors"
	"sync"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// ErrInvalidQuantity is returned when adding a non-positive quantity
var ErrInvalidQuantity = errors.New("quantity must be positive")

// Line is one product in the cart
type Line struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// Total is the display price of the line
func (l Line) Total() float64 {
	return l.Product.Price * float64(l.Quantity)
}

// Cart is an ordered set of lines, one per product
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// NewCart returns an empty cart
func NewCart() *Cart {
	return &Cart{}
}

// AddProduct adds qty of p, merging with an existing line for the same product
func (c *Cart) AddProduct(p models.Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Quantity += qty
			c.lines[i].Product = p
			return nil
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: qty})
	return nil
}

// SetQuantity sets the quantity of a line; zero or less removes it.
// It reports whether the product was in the cart.
func (c *Cart) SetQuantity(id models.ID, qty int) bool {
	if qty <= 0 {
		return c.Remove(id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == id {
			c.lines[i].Quantity = qty
			return true
		}
	}
	return false
}

// Remove drops the line for id
func (c *Cart) Remove(id models.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the lines in insertion order
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Line(nil), c.lines...)
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// ItemCount sums quantities across lines
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal is for display only; the backend prices the sale
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, l := range c.lines {
		total += l.Total()
	}
	return total
}

// saleItems converts the lines to the checkout payload
func (c *Cart) saleItems() []models.SaleItemInput {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]models.SaleItemInput, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, models.SaleItemInput{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		})
	}
	return items
}
