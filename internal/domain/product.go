package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog record. The cart copies Name, Price and Image when the product is added.
type Product struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
	Tag   string
	Image string

	CreatedAt time.Time
}

func (p Product) LineItem() LineItem {
	return LineItem{
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Quantity: 1,
	}
}
