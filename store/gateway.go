package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
)

// Doc is a raw document payload. Values must be JSON-encodable; writes
// normalize them through an encode/decode round trip so both gateway
// implementations store the same shapes (time.Time becomes RFC3339).
type Doc map[string]any

// Document is a stored document together with its location.
type Document struct {
	Collection string
	ID         string
	Data       Doc
}

// Decode unmarshals the document payload into a typed struct.
func (d *Document) Decode(out any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", d.Collection, d.ID, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Filter is a field == value predicate. Only string equality is used by
// the application (uids, statuses, project ids, period keys).
type Filter struct {
	Field string
	Value string
}

// Query selects documents either from one collection path or across all
// collections sharing a leaf name (collection-group query).
type Query struct {
	Collection string // exact collection path, e.g. "projects/p1/expenses"
	Group      string // collection-group leaf name, e.g. "members"
	Filters    []Filter
	OrderBy    string
	Desc       bool
}

// CancelFunc tears down a live subscription. Idempotent.
type CancelFunc func()

// Batch accumulates writes that are applied atomically on Commit.
// Create fails the whole batch if the target exists, Update if it does
// not; nothing is applied on failure.
type Batch interface {
	Create(collection, id string, data Doc)
	Set(collection, id string, data Doc)
	Update(collection, id string, data Doc)
	// Merge upserts only the given fields, like Gateway.Merge.
	Merge(collection, id string, data Doc)
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

// Gateway is the document access contract: point reads, single-document
// writes, live subscriptions and atomic batches. Both the in-memory and
// the Postgres-backed stores implement it.
type Gateway interface {
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Create writes a new document and fails with ErrExists when the id
	// is taken. Set overwrites unconditionally. Merge upserts only the
	// given fields, leaving others untouched.
	Create(ctx context.Context, collection, id string, data Doc) error
	Set(ctx context.Context, collection, id string, data Doc) error
	Merge(ctx context.Context, collection, id string, data Doc) error
	Delete(ctx context.Context, collection, id string) error

	Query(ctx context.Context, q Query) ([]Document, error)

	// Subscribe emits the current result set immediately and again after
	// every write that touches the queried collection. SubscribeDoc
	// emits nil when the document is missing or deleted.
	Subscribe(q Query, onNext func([]Document), onErr func(error)) CancelFunc
	SubscribeDoc(collection, id string, onNext func(*Document), onErr func(error)) CancelFunc

	Batch() Batch
}

// Leaf returns the collection-group name of a collection path, i.e. its
// last segment: "projects/p1/members" -> "members".
func Leaf(collection string) string {
	if i := strings.LastIndexByte(collection, '/'); i >= 0 {
		return collection[i+1:]
	}
	return collection
}

// ToDoc converts a typed struct into a raw document payload.
func ToDoc(v any) (Doc, error) {
	out, err := roundTrip(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

// Normalize round-trips a payload through JSON so stored values have
// the same dynamic types regardless of the backing store.
func Normalize(data Doc) (Doc, error) {
	out, err := roundTrip(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	return out, nil
}

// roundTrip decodes with UseNumber so integer amounts survive exactly;
// a plain unmarshal would force every number through float64.
func roundTrip(v any) (Doc, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out Doc
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
