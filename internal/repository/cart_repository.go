package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront-cart/internal/db"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
)

type cartRepository struct {
	q    *db.Queries
	pool *pgxpool.Pool
}

func NewCart(pool *pgxpool.Pool) port.CartStorage {
	return &cartRepository{
		q:    db.New(pool),
		pool: pool,
	}
}

func NewCartWithTx(tx pgx.Tx) port.CartStorage {
	return &cartRepository{
		q:    db.New(tx),
		pool: nil, // use provided transaction instead
	}
}

func (r *cartRepository) Load(ctx context.Context, ownerID string) ([]domain.LineItem, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}

	rows, err := r.q.GetCartItems(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("q.GetCartItems: %w", err)
	}

	return mapCartRowsToDomain(rows), nil
}

// Save replaces the stored snapshot of ownerID with items in one transaction.
func (r *cartRepository) Save(ctx context.Context, ownerID string, items []domain.LineItem) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	params := make([]db.InsertCartItemParams, 0, len(items))
	for i, item := range items {
		p, err := mapDomainToInsertParams(ownerID, i, item)
		if err != nil {
			return fmt.Errorf("mapDomainToInsertParams: %w", err)
		}
		params = append(params, p)
	}

	return inTx(ctx, r.pool, r.q, func(q *db.Queries) error {
		if _, err := q.DeleteCartItems(ctx, ownerID); err != nil {
			return fmt.Errorf("q.DeleteCartItems: %w", err)
		}

		for _, p := range params {
			if err := q.InsertCartItem(ctx, p); err != nil {
				return fmt.Errorf("q.InsertCartItem[%s]: %w", p.Name, err)
			}
		}

		return nil
	})
}

func mapDomainToInsertParams(ownerID string, position int, item domain.LineItem) (db.InsertCartItemParams, error) {
	if item.Quantity > math.MaxInt32 {
		return db.InsertCartItemParams{}, fmt.Errorf("quantity[%d] of %s is out of range", item.Quantity, item.Name)
	}

	return db.InsertCartItemParams{
		OwnerID:     ownerID,
		Name:        item.Name,
		PriceAmount: item.Price,
		Image:       item.Image,
		Quantity:    int32(item.Quantity),
		Position:    int32(position),
	}, nil
}

func mapCartRowsToDomain(rows []db.GetCartItemsRow) []domain.LineItem {
	var items []domain.LineItem

	for _, row := range rows {
		items = append(items, domain.LineItem{
			Name:     row.Name,
			Price:    row.PriceAmount,
			Image:    row.Image,
			Quantity: int(row.Quantity),
		})
	}

	return items
}
