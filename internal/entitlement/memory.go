package entitlement

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. State is lost on restart.
type MemoryStore struct {
	mu           sync.RWMutex
	entitlements map[string]Entitlement

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entitlements: make(map[string]Entitlement),
		subs:         make(map[int]func(Change)),
		now:          time.Now,
	}
}

// Apply merges m into the customer's entitlement.
func (s *MemoryStore) Apply(ctx context.Context, m Mutation) (Entitlement, Outcome, error) {
	select {
	case <-ctx.Done():
		return Entitlement{}, "", ctx.Err()
	default:
	}
	if m.CustomerID == "" {
		return Entitlement{}, "", ErrMissingCustomer
	}

	s.mu.Lock()
	before, exists := s.entitlements[m.CustomerID]
	// The zero time sorts before any stamp, so an undated event never
	// overrides timestamped state.
	if exists && m.EventAt.Before(before.LastEventAt) {
		s.mu.Unlock()
		return before, OutcomeStale, nil
	}

	after := merge(before, m)
	if exists && sameState(before, after) {
		// Replays keep the original bookkeeping; a newer event with the same
		// target only advances the ordering watermark.
		if m.EventAt.After(before.LastEventAt) {
			before.LastEventAt = m.EventAt
			before.LastEventID = m.EventID
			s.entitlements[m.CustomerID] = before
		}
		s.mu.Unlock()
		return before, OutcomeUnchanged, nil
	}

	after.UpdatedAt = s.now().UTC()
	s.entitlements[m.CustomerID] = after
	s.mu.Unlock()

	s.notify(Change{Before: before, After: after, Mutation: m})
	return after, OutcomeApplied, nil
}

// Get returns the customer's entitlement or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, customerID string) (Entitlement, error) {
	select {
	case <-ctx.Done():
		return Entitlement{}, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entitlements[customerID]
	if !ok {
		return Entitlement{}, ErrNotFound
	}
	return e, nil
}

// Subscribe registers fn for applied changes. fn runs synchronously on the
// applying goroutine after the store lock is released. The returned func
// removes the subscription.
func (s *MemoryStore) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *MemoryStore) notify(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func merge(e Entitlement, m Mutation) Entitlement {
	e.CustomerID = m.CustomerID
	e.Status = m.Status
	e.HasAccess = m.HasAccess
	e.AccessUntil = m.AccessUntil
	if m.Email != "" {
		e.Email = m.Email
	}
	if m.UserID != "" {
		e.UserID = m.UserID
	}
	if m.SubscriptionID != "" {
		e.SubscriptionID = m.SubscriptionID
	}
	if m.ProductID != "" {
		e.ProductID = m.ProductID
	}
	if m.EventAt.After(e.LastEventAt) {
		e.LastEventAt = m.EventAt
		e.LastEventID = m.EventID
	}
	return e
}

// sameState compares the fields a mutation can set, ignoring bookkeeping.
func sameState(a, b Entitlement) bool {
	return a.CustomerID == b.CustomerID &&
		a.Email == b.Email &&
		a.UserID == b.UserID &&
		a.SubscriptionID == b.SubscriptionID &&
		a.ProductID == b.ProductID &&
		a.Status == b.Status &&
		a.HasAccess == b.HasAccess &&
		sameTime(a.AccessUntil, b.AccessUntil)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
