package port

import (
	"context"

	"github.com/nikolayk812/storefront-cart/internal/domain"
)

// CartStorage persists full cart snapshots. Save replaces whatever was stored for the owner.
type CartStorage interface {
	Load(ctx context.Context, ownerID string) ([]domain.LineItem, error)
	Save(ctx context.Context, ownerID string, items []domain.LineItem) error
}
