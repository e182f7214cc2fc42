// Package removal implements deferred removal of cart items: an item is first marked as
// pending, and only after a fixed delay is it actually removed from the cart. The pending
// flags live here, never in the cart, so the cart totals keep the item until the commit.
package removal

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultDelay = 300 * time.Millisecond

type Remover interface {
	RemoveFromCart(ctx context.Context, name string) error
}

type pendingRemoval struct {
	timer      *time.Timer
	committing bool
}

type Scheduler struct {
	remover       Remover
	delay         time.Duration
	commitTimeout time.Duration
	log           logrus.FieldLogger
	onError       func(name string, err error)

	mu      sync.Mutex
	pending map[string]*pendingRemoval
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scheduler) {
		s.log = log
	}
}

// WithErrorHandler is called when a commit fails. The pending flag is cleared either way.
func WithErrorHandler(fn func(name string, err error)) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

func WithCommitTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.commitTimeout = d
	}
}

func NewScheduler(remover Remover, delay time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		remover:       remover,
		delay:         delay,
		commitTimeout: 5 * time.Second,
		log:           logrus.StandardLogger(),
		pending:       make(map[string]*pendingRemoval),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.onError == nil {
		s.onError = func(name string, err error) {
			s.log.WithError(err).WithField("name", name).Error("deferred removal failed")
		}
	}

	return s
}

// MarkPendingRemoval flags name and arms its commit timer. It returns false when name is
// already pending or the scheduler is closed.
func (s *Scheduler) MarkPendingRemoval(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if _, ok := s.pending[name]; ok {
		return false
	}

	entry := &pendingRemoval{}
	s.wg.Add(1)
	// commit blocks on mu until entry.timer is assigned
	entry.timer = time.AfterFunc(s.delay, func() {
		s.commit(name, entry)
	})
	s.pending[name] = entry

	return true
}

// Cancel withdraws a pending removal and leaves the item in the cart.
// It returns false when name is not pending or its commit has already started.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[name]
	if !ok || entry.committing {
		return false
	}
	if !entry.timer.Stop() {
		return false
	}

	delete(s.pending, name)
	s.wg.Done()

	return true
}

func (s *Scheduler) IsPending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[name]
	return ok
}

// Pending returns the names currently marked, sorted.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.pending))
	for name := range s.pending {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Close cancels every removal whose commit has not started and waits for the ones that have.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for name, entry := range s.pending {
		if entry.committing || !entry.timer.Stop() {
			continue
		}
		delete(s.pending, name)
		s.wg.Done()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) commit(name string, entry *pendingRemoval) {
	defer s.wg.Done()

	s.mu.Lock()
	if s.pending[name] != entry {
		s.mu.Unlock()
		return
	}
	entry.committing = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.commitTimeout)
	err := s.remover.RemoveFromCart(ctx, name)
	cancel()

	s.mu.Lock()
	delete(s.pending, name)
	s.mu.Unlock()

	if err != nil {
		s.onError(name, err)
		return
	}

	s.log.WithField("name", name).Debug("deferred removal committed")
}
