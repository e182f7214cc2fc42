package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
)

type memoryCartRepository struct {
	mu    sync.RWMutex
	carts map[string][]domain.LineItem
}

// NewMemoryCart keeps snapshots in process memory; they are lost on restart.
func NewMemoryCart() port.CartStorage {
	return &memoryCartRepository{
		carts: make(map[string][]domain.LineItem),
	}
}

func (r *memoryCartRepository) Load(_ context.Context, ownerID string) ([]domain.LineItem, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.carts[ownerID]), nil
}

func (r *memoryCartRepository) Save(_ context.Context, ownerID string, items []domain.LineItem) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(items) == 0 {
		delete(r.carts, ownerID)
		return nil
	}

	r.carts[ownerID] = slices.Clone(items)
	return nil
}
