// Package cart holds the in-session shopping cart: an ordered list of line items keyed by
// product name, its mutations and derived totals. Every mutation persists the full snapshot
// through a port.CartStorage and is rolled back in memory when that write fails.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/currency"
)

var (
	// ErrPersistence wraps every failure of the storage collaborator.
	ErrPersistence = errors.New("cart persistence failed")
	// ErrInvalidProduct is returned by AddToCart for a product without a name or with a negative price.
	ErrInvalidProduct = errors.New("invalid product")
)

type Store struct {
	ownerID  string
	storage  port.CartStorage
	currency currency.Unit
	log      logrus.FieldLogger

	mu    sync.Mutex
	items []domain.LineItem

	// notifyMu is taken before mu is released so listeners observe snapshots in mutation order.
	notifyMu  sync.Mutex
	listeners map[int]func(domain.Cart)
	nextID    int
}

type Option func(*Store)

func WithCurrency(unit currency.Unit) Option {
	return func(s *Store) {
		s.currency = unit
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

func New(ownerID string, storage port.CartStorage, opts ...Option) *Store {
	s := &Store{
		ownerID:   ownerID,
		storage:   storage,
		currency:  currency.THB,
		log:       logrus.StandardLogger(),
		listeners: make(map[int]func(domain.Cart)),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.WithField("owner_id", ownerID)

	return s
}

func (s *Store) OwnerID() string {
	return s.ownerID
}

// Load replaces the in-memory cart with the persisted one. On failure the cart is left as it was.
func (s *Store) Load(ctx context.Context) error {
	items, err := s.storage.Load(ctx, s.ownerID)
	if err != nil {
		s.log.WithError(err).Error("cart load failed")
		return fmt.Errorf("%w: storage.Load: %w", ErrPersistence, err)
	}

	s.mu.Lock()
	s.items = items
	s.notifyAndUnlock()

	s.log.WithField("items", len(items)).Debug("cart loaded")
	return nil
}

func (s *Store) AddToCart(ctx context.Context, product domain.Product) error {
	if product.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidProduct)
	}
	if product.Price.IsNegative() {
		return fmt.Errorf("%w: price[%s] of %s is negative", ErrInvalidProduct, product.Price, product.Name)
	}

	return s.mutate(ctx, "add", product.Name, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		if i := indexOf(items, product.Name); i >= 0 {
			items[i].Quantity++
			return items, true
		}
		return append(items, product.LineItem()), true
	})
}

// RemoveFromCart drops the item with the given name. An absent name is a no-op.
func (s *Store) RemoveFromCart(ctx context.Context, name string) error {
	return s.mutate(ctx, "remove", name, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		i := indexOf(items, name)
		if i < 0 {
			return items, false
		}
		return append(items[:i], items[i+1:]...), true
	})
}

func (s *Store) IncreaseQuantity(ctx context.Context, name string) error {
	return s.mutate(ctx, "increase", name, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		i := indexOf(items, name)
		if i < 0 {
			return items, false
		}
		items[i].Quantity++
		return items, true
	})
}

// DecreaseQuantity lowers the quantity by one but never below 1.
// A quantity-1 item stays in the cart; only RemoveFromCart takes it out.
func (s *Store) DecreaseQuantity(ctx context.Context, name string) error {
	return s.mutate(ctx, "decrease", name, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		i := indexOf(items, name)
		if i < 0 || items[i].Quantity <= 1 {
			return items, false
		}
		items[i].Quantity--
		return items, true
	})
}

// ClearCart empties the cart. Clearing an empty cart does nothing.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, "clear", "", func(items []domain.LineItem) ([]domain.LineItem, bool) {
		if len(items) == 0 {
			return items, false
		}
		return nil, true
	})
}

func (s *Store) Currency() currency.Unit {
	return s.currency
}

func (s *Store) TotalPrice() domain.Money {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Money{
		Amount:   s.snapshot().TotalPrice(),
		Currency: s.currency,
	}
}

func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot().TotalQuantity()
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	return s.Snapshot().Items
}

func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot().Clone()
}

// Subscribe registers fn to receive the cart snapshot after every successful mutation.
// fn runs synchronously on the mutating goroutine and must not mutate the store.
func (s *Store) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			defer s.notifyMu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// mutate applies fn to a copy of the items, persists the result and only then swaps it in.
// fn reports false when nothing changed; in that case nothing is saved or published.
func (s *Store) mutate(ctx context.Context, op, name string, fn func([]domain.LineItem) ([]domain.LineItem, bool)) error {
	s.mu.Lock()

	next, changed := fn(s.snapshot().Clone().Items)
	if !changed {
		s.mu.Unlock()
		return nil
	}

	log := s.log.WithField("op", op)
	if name != "" {
		log = log.WithField("name", name)
	}

	if err := s.storage.Save(ctx, s.ownerID, next); err != nil {
		s.mu.Unlock()
		log.WithError(err).Error("cart save failed, mutation rolled back")
		return fmt.Errorf("%w: storage.Save: %w", ErrPersistence, err)
	}

	s.items = next
	s.notifyAndUnlock()

	log.Debug("cart updated")
	return nil
}

// notifyAndUnlock must be called with mu held. It hands the snapshot to listeners after releasing mu.
func (s *Store) notifyAndUnlock() {
	snapshot := s.snapshot().Clone()

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range s.listeners {
		fn(snapshot)
	}
}

func (s *Store) snapshot() domain.Cart {
	return domain.Cart{
		OwnerID: s.ownerID,
		Items:   s.items,
	}
}

func indexOf(items []domain.LineItem, name string) int {
	return domain.Cart{Items: items}.IndexOf(name)
}
