package cart

import (
	"github.com/shopspring/decimal"
)

type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image,omitempty"`
	Category string  `json:"category,omitempty"`
}

// LineItem is the order-side snapshot of a cart line.
type LineItem struct {
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductImage string  `json:"productImage,omitempty"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
}

// Cart keeps at most one line per product id, in insertion order.
// The zero value is an empty cart.
type Cart struct {
	items []Item
}

func New(items ...Item) *Cart {
	c := &Cart{}
	for _, it := range items {
		c.Add(it)
	}
	return c
}

// Add merges quantities when the product is already in the cart.
// A zero or negative quantity counts as one.
func (c *Cart) Add(item Item) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if i := c.index(item.ID); i >= 0 {
		c.items[i].Quantity += item.Quantity
		return
	}
	c.items = append(c.items, item)
}

func (c *Cart) Remove(id string) {
	if i := c.index(id); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// UpdateQuantity removes the line when quantity is not positive.
func (c *Cart) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		c.Remove(id)
		return
	}
	if i := c.index(id); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, it := range c.items {
		total += it.Quantity
	}
	return total
}

// TotalPrice sums price times quantity without float drift.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (c *Cart) LineItems() []LineItem {
	out := make([]LineItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, LineItem{
			ProductID:    it.ID,
			ProductName:  it.Name,
			ProductImage: it.Image,
			Quantity:     it.Quantity,
			Price:        it.Price,
		})
	}
	return out
}

func (c *Cart) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}
