package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

type Cart struct {
	OwnerID string
	Items   []LineItem
}

// LineItem is one product entry in a cart. Name is the identity within the cart.
type LineItem struct {
	Name     string
	Price    decimal.Decimal
	Image    string
	Quantity int
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TotalPrice sums price × quantity over all items.
func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c Cart) TotalQuantity() int {
	var total int
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// IndexOf returns the position of the item with the given name, or -1.
func (c Cart) IndexOf(name string) int {
	return slices.IndexFunc(c.Items, func(item LineItem) bool {
		return item.Name == name
	})
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	return Cart{
		OwnerID: c.OwnerID,
		Items:   slices.Clone(c.Items),
	}
}
