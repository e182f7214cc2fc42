// Package session owns the per-owner cart stores and their removal schedulers.
// A session is created on first use with a single load from storage and torn down on Close.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nikolayk812/storefront-cart/internal/cart"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/nikolayk812/storefront-cart/internal/removal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/currency"
)

type Session struct {
	Cart     *cart.Store
	Removals *removal.Scheduler
}

type Manager struct {
	storage      port.CartStorage
	removalDelay time.Duration
	loadTimeout  time.Duration
	currency     currency.Unit
	log          logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string]*entry
}

// entry is registered under mu; its cart is loaded outside mu, exactly once.
type entry struct {
	session *Session
	load    sync.Once
}

type Option func(*Manager)

func WithCurrency(unit currency.Unit) Option {
	return func(m *Manager) {
		m.currency = unit
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithLoadTimeout bounds the initial load of a session.
func WithLoadTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.loadTimeout = d
	}
}

func NewManager(storage port.CartStorage, removalDelay time.Duration, opts ...Option) *Manager {
	m := &Manager{
		storage:      storage,
		removalDelay: removalDelay,
		loadTimeout:  10 * time.Second,
		currency:     currency.THB,
		log:          logrus.StandardLogger(),
		sessions:     make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Get returns the session of ownerID, creating and loading it on first use.
// Concurrent callers for the same owner wait for that load; other owners are not held up.
// The load is detached from ctx cancellation so a caller going away cannot leave an empty cart
// behind. When the load itself fails the session is still registered with an empty cart and
// returned together with the error to the caller that ran it; later calls return it without error.
func (m *Manager) Get(ctx context.Context, ownerID string) (*Session, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}

	e := m.register(ownerID)

	var loadErr error
	e.load.Do(func() {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.loadTimeout)
		defer cancel()

		loadErr = e.session.Cart.Load(loadCtx)
	})
	if loadErr != nil {
		return e.session, fmt.Errorf("store.Load: %w", loadErr)
	}

	return e.session, nil
}

func (m *Manager) register(ownerID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[ownerID]; ok {
		return e
	}

	log := m.log.WithField("owner_id", ownerID)

	store := cart.New(ownerID, m.storage,
		cart.WithCurrency(m.currency),
		cart.WithLogger(m.log))

	e := &entry{
		session: &Session{
			Cart:     store,
			Removals: removal.NewScheduler(store, m.removalDelay, removal.WithLogger(log)),
		},
	}
	m.sessions[ownerID] = e

	log.Debug("session started")
	return e
}

// Close ends the session of ownerID. Pending removals that have not started are dropped.
func (m *Manager) Close(ownerID string) bool {
	m.mu.Lock()
	e, ok := m.sessions[ownerID]
	delete(m.sessions, ownerID)
	m.mu.Unlock()

	if !ok {
		return false
	}

	e.session.Removals.Close()
	m.log.WithField("owner_id", ownerID).Debug("session closed")
	return true
}

func (m *Manager) CloseAll() {
	for _, ownerID := range m.Owners() {
		m.Close(ownerID)
	}
}

func (m *Manager) Owners() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	owners := make([]string, 0, len(m.sessions))
	for ownerID := range m.sessions {
		owners = append(owners, ownerID)
	}
	slices.Sort(owners)

	return owners
}
