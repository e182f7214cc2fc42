package port

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (domain.Product, error)
	SaveProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error)
}
