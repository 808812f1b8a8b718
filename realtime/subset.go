package realtime

import (
	"sync"

	"github.com/hogarlabs/hogar-api/store"
)

// SubscriptionSet keeps a dynamic set of per-id live subscriptions in
// step with a desired id set: Reconcile opens subscriptions for ids
// that appeared and cancels the ones that left. The invariant it
// maintains is that the open set always equals the last desired set.
type SubscriptionSet struct {
	mu     sync.Mutex
	open   map[string]store.CancelFunc
	opener func(id string) store.CancelFunc
	closed bool
}

// NewSubscriptionSet builds an empty set. The opener must return the
// cancel handle of a live subscription for the given id; it may deliver
// its first snapshot before returning.
func NewSubscriptionSet(opener func(id string) store.CancelFunc) *SubscriptionSet {
	return &SubscriptionSet{
		open:   make(map[string]store.CancelFunc),
		opener: opener,
	}
}

// Reconcile diffs the desired set against the currently open one.
// Removals are cancelled before additions are opened, so a rapid
// leave/rejoin cycle never leaks the intermediate subscription.
func (s *SubscriptionSet) Reconcile(desired map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for id, cancel := range s.open {
		if _, ok := desired[id]; !ok {
			cancel()
			delete(s.open, id)
		}
	}
	for id := range desired {
		if _, ok := s.open[id]; ok {
			continue
		}
		s.open[id] = s.opener(id)
	}
}

func (s *SubscriptionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

func (s *SubscriptionSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.open[id]
	return ok
}

// Close cancels every open subscription. Idempotent; the set refuses
// further Reconcile calls afterwards.
func (s *SubscriptionSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, cancel := range s.open {
		cancel()
		delete(s.open, id)
	}
}
