package store

import "sync"

// changeEvent identifies a write so live subscriptions can decide
// whether their query needs re-running.
type changeEvent struct {
	collection string
	leaf       string
	id         string
}

// changeHub fans out write notifications inside the process. The
// Postgres gateway has no server-side change feed, so its live
// subscriptions re-run their query whenever the hub reports a write
// that touches the subscribed collection.
type changeHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(changeEvent)
}

func newChangeHub() *changeHub {
	return &changeHub{subs: make(map[int]func(changeEvent))}
}

func (h *changeHub) subscribe(fn func(changeEvent)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *changeHub) publish(e changeEvent) {
	h.mu.RLock()
	fns := make([]func(changeEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
