package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Gateway with real change notifications. It
// backs local development when no DATABASE_URL is configured and doubles
// as the store used by the package tests, which observe its
// subscription counters.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Doc

	nextSubID int
	querySubs map[int]*memQuerySub
	docSubs   map[int]*memDocSub

	opened int
	closed int
}

type memQuerySub struct {
	q      Query
	onNext func([]Document)
	onErr  func(error)
}

type memDocSub struct {
	collection string
	id         string
	onNext     func(*Document)
	onErr      func(error)
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Doc),
		querySubs:   make(map[int]*memQuerySub),
		docSubs:     make(map[int]*memDocSub),
	}
}

func (m *Memory) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{Collection: collection, ID: id, Data: cloneDoc(data)}, nil
}

func (m *Memory) Create(ctx context.Context, collection, id string, data Doc) error {
	norm, err := Normalize(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.collections[collection][id]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrExists)
	}
	m.put(collection, id, norm)
	subs := m.affected(collection, id)
	m.mu.Unlock()
	m.notify(subs)
	return nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data Doc) error {
	norm, err := Normalize(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.put(collection, id, norm)
	subs := m.affected(collection, id)
	m.mu.Unlock()
	m.notify(subs)
	return nil
}

func (m *Memory) Merge(ctx context.Context, collection, id string, data Doc) error {
	norm, err := Normalize(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	cur, ok := m.collections[collection][id]
	if !ok {
		cur = Doc{}
	}
	merged := cloneDoc(cur)
	for k, v := range norm {
		merged[k] = v
	}
	m.put(collection, id, merged)
	subs := m.affected(collection, id)
	m.mu.Unlock()
	m.notify(subs)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	if col, ok := m.collections[collection]; ok {
		delete(col, id)
		if len(col) == 0 {
			delete(m.collections, collection)
		}
	}
	subs := m.affected(collection, id)
	m.mu.Unlock()
	m.notify(subs)
	return nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evaluate(q), nil
}

func (m *Memory) Subscribe(q Query, onNext func([]Document), onErr func(error)) CancelFunc {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.querySubs[id] = &memQuerySub{q: q, onNext: onNext, onErr: onErr}
	m.opened++
	initial := m.evaluate(q)
	m.mu.Unlock()

	onNext(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.querySubs, id)
			m.closed++
			m.mu.Unlock()
		})
	}
}

func (m *Memory) SubscribeDoc(collection, id string, onNext func(*Document), onErr func(error)) CancelFunc {
	m.mu.Lock()
	subID := m.nextSubID
	m.nextSubID++
	m.docSubs[subID] = &memDocSub{collection: collection, id: id, onNext: onNext, onErr: onErr}
	m.opened++
	initial := m.lookup(collection, id)
	m.mu.Unlock()

	onNext(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.docSubs, subID)
			m.closed++
			m.mu.Unlock()
		})
	}
}

func (m *Memory) Batch() Batch {
	return &memBatch{m: m}
}

// OpenSubscriptions reports currently live subscriptions. Counts reports
// how many were ever opened and closed.
func (m *Memory) OpenSubscriptions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.querySubs) + len(m.docSubs)
}

func (m *Memory) Counts() (opened, closed int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opened, m.closed
}

// put stores without notification; callers hold the write lock.
func (m *Memory) put(collection, id string, data Doc) {
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]Doc)
		m.collections[collection] = col
	}
	col[id] = data
}

func (m *Memory) lookup(collection, id string) *Document {
	data, ok := m.collections[collection][id]
	if !ok {
		return nil
	}
	return &Document{Collection: collection, ID: id, Data: cloneDoc(data)}
}

// notification is a closure capturing the subscriber callback and the
// result computed for it; callbacks run after the store lock is
// released so they may call back into the gateway.
type notification func()

func (m *Memory) affected(collection, id string) []notification {
	var out []notification
	leaf := Leaf(collection)
	for _, sub := range m.querySubs {
		if sub.q.Collection == collection || (sub.q.Group != "" && sub.q.Group == leaf) {
			s := sub
			out = append(out, func() { s.onNext(m.snapshot(s.q)) })
		}
	}
	for _, sub := range m.docSubs {
		if sub.collection == collection && sub.id == id {
			s := sub
			out = append(out, func() {
				m.mu.RLock()
				doc := m.lookup(s.collection, s.id)
				m.mu.RUnlock()
				s.onNext(doc)
			})
		}
	}
	return out
}

func (m *Memory) snapshot(q Query) []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.evaluate(q)
}

func (m *Memory) notify(subs []notification) {
	for _, fn := range subs {
		fn()
	}
}

// evaluate runs a query; callers hold at least the read lock.
func (m *Memory) evaluate(q Query) []Document {
	var out []Document
	appendMatches := func(collection string, col map[string]Doc) {
		for id, data := range col {
			if matches(data, q.Filters) {
				out = append(out, Document{Collection: collection, ID: id, Data: cloneDoc(data)})
			}
		}
	}
	if q.Group != "" {
		for path, col := range m.collections {
			if Leaf(path) == q.Group {
				appendMatches(path, col)
			}
		}
	} else {
		appendMatches(q.Collection, m.collections[q.Collection])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			less, eq := compareField(out[i].Data[q.OrderBy], out[j].Data[q.OrderBy])
			if !eq {
				if q.Desc {
					return !less
				}
				return less
			}
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func matches(data Doc, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field].(string)
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}

func compareField(a, b any) (less, eq bool) {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av < bv, av == bv
		}
	case json.Number:
		if bv, ok := b.(json.Number); ok {
			af, _ := av.Float64()
			bf, _ := bv.Float64()
			return af < bf, af == bf
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv, av == bv
		}
	}
	return false, true
}

func cloneDoc(d Doc) Doc {
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

type memOp struct {
	kind       string // create | set | update | delete
	collection string
	id         string
	data       Doc
}

type memBatch struct {
	m   *Memory
	ops []memOp
}

func (b *memBatch) Create(collection, id string, data Doc) {
	b.ops = append(b.ops, memOp{kind: "create", collection: collection, id: id, data: data})
}

func (b *memBatch) Set(collection, id string, data Doc) {
	b.ops = append(b.ops, memOp{kind: "set", collection: collection, id: id, data: data})
}

func (b *memBatch) Update(collection, id string, data Doc) {
	b.ops = append(b.ops, memOp{kind: "update", collection: collection, id: id, data: data})
}

func (b *memBatch) Merge(collection, id string, data Doc) {
	b.ops = append(b.ops, memOp{kind: "merge", collection: collection, id: id, data: data})
}

func (b *memBatch) Delete(collection, id string) {
	b.ops = append(b.ops, memOp{kind: "delete", collection: collection, id: id})
}

// Commit validates every operation before applying any, so a failed
// batch leaves no partial state behind.
func (b *memBatch) Commit(ctx context.Context) error {
	normalized := make([]Doc, len(b.ops))
	for i, op := range b.ops {
		if op.kind == "delete" {
			continue
		}
		norm, err := Normalize(op.data)
		if err != nil {
			return err
		}
		normalized[i] = norm
	}

	b.m.mu.Lock()
	for _, op := range b.ops {
		_, exists := b.m.collections[op.collection][op.id]
		switch op.kind {
		case "create":
			if exists {
				b.m.mu.Unlock()
				return fmt.Errorf("%s/%s: %w", op.collection, op.id, ErrExists)
			}
		case "update":
			if !exists {
				b.m.mu.Unlock()
				return fmt.Errorf("%s/%s: %w", op.collection, op.id, ErrNotFound)
			}
		}
	}

	var subs []notification
	for i, op := range b.ops {
		switch op.kind {
		case "create", "set":
			b.m.put(op.collection, op.id, normalized[i])
		case "update", "merge":
			merged := cloneDoc(b.m.collections[op.collection][op.id])
			for k, v := range normalized[i] {
				merged[k] = v
			}
			b.m.put(op.collection, op.id, merged)
		case "delete":
			if col, ok := b.m.collections[op.collection]; ok {
				delete(col, op.id)
			}
		}
		subs = append(subs, b.m.affected(op.collection, op.id)...)
	}
	b.m.mu.Unlock()

	b.m.notify(subs)
	return nil
}
