package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront-cart/internal/db"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
)

type productRepository struct {
	q *db.Queries
}

func NewProduct(pool *pgxpool.Pool) port.ProductCatalog {
	return &productRepository{
		q: db.New(pool),
	}
}

func (r *productRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.q.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("q.ListProducts: %w", err)
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, mapProductRowToDomain(row))
	}

	return products, nil
}

func (r *productRepository) GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	row, err := r.q.GetProduct(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, port.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("q.GetProduct: %w", err)
	}

	return mapProductRowToDomain(row), nil
}

// SaveProduct inserts the product when its ID is nil, otherwise creates or overwrites it.
func (r *productRepository) SaveProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	row, err := r.q.UpsertProduct(ctx, db.UpsertProductParams{
		ID:          product.ID,
		Name:        product.Name,
		PriceAmount: product.Price,
		Tag:         product.Tag,
		Image:       product.Image,
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("q.UpsertProduct: %w", err)
	}

	return mapProductRowToDomain(row), nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	rowsAffected, err := r.q.DeleteProduct(ctx, id)
	if err != nil {
		return false, fmt.Errorf("q.DeleteProduct: %w", err)
	}

	return rowsAffected > 0, nil
}

func validateProduct(product domain.Product) error {
	if product.Name == "" {
		return fmt.Errorf("product name is empty")
	}
	if product.Price.IsNegative() {
		return fmt.Errorf("product price[%s] is negative", product.Price)
	}
	return nil
}

func mapProductRowToDomain(row db.Product) domain.Product {
	return domain.Product{
		ID:        row.ID,
		Name:      row.Name,
		Price:     row.PriceAmount,
		Tag:       row.Tag,
		Image:     row.Image,
		CreatedAt: row.CreatedAt,
	}
}
