package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"
)

func errorsIsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// decodeDoc mirrors Normalize: UseNumber keeps integer amounts exact.
func decodeDoc(raw []byte) (Doc, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out Doc
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Postgres stores documents as JSONB rows in a single table, the way
// the relational side of the app stores its payload blobs. Change
// notifications are process-local via the shared hub; this server runs
// as a single instance.
type Postgres struct {
	db  *sql.DB
	hub *changeHub
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, hub: newChangeHub()}
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT data FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	data, err := decodeDoc(raw)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return &Document{Collection: collection, ID: id, Data: data}, nil
}

func (p *Postgres) Create(ctx context.Context, collection, id string, data Doc) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, leaf, id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, Leaf(collection), id, raw)
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrExists)
	}
	p.hub.publish(changeEvent{collection: collection, leaf: Leaf(collection), id: id})
	return nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data Doc) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, leaf, id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, collection, Leaf(collection), id, raw)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	p.hub.publish(changeEvent{collection: collection, leaf: Leaf(collection), id: id})
	return nil
}

func (p *Postgres) Merge(ctx context.Context, collection, id string, data Doc) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, leaf, id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = NOW()
	`, collection, Leaf(collection), id, raw)
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	p.hub.publish(changeEvent{collection: collection, leaf: Leaf(collection), id: id})
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	p.hub.publish(changeEvent{collection: collection, leaf: Leaf(collection), id: id})
	return nil
}

func (p *Postgres) Query(ctx context.Context, q Query) ([]Document, error) {
	sqlText, args := buildQuery(q)
	rows, err := p.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s%s: %w", q.Collection, q.Group, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		var raw []byte
		if err := rows.Scan(&doc.Collection, &doc.ID, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if doc.Data, err = decodeDoc(raw); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", doc.Collection, doc.ID, err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func buildQuery(q Query) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString(`SELECT collection, id, data FROM documents WHERE `)
	if q.Group != "" {
		args = append(args, q.Group)
		sb.WriteString(`leaf = $1`)
	} else {
		args = append(args, q.Collection)
		sb.WriteString(`collection = $1`)
	}
	for _, f := range q.Filters {
		args = append(args, f.Value)
		fmt.Fprintf(&sb, ` AND data->>%s = $%d`, pq.QuoteLiteral(f.Field), len(args))
	}
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY data->>%s %s, id ASC`, pq.QuoteLiteral(q.OrderBy), dir)
	} else {
		sb.WriteString(` ORDER BY id ASC`)
	}
	return sb.String(), args
}

func (p *Postgres) Subscribe(q Query, onNext func([]Document), onErr func(error)) CancelFunc {
	emit := func() {
		docs, err := p.Query(context.Background(), q)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		onNext(docs)
	}

	unsub := p.hub.subscribe(func(e changeEvent) {
		if e.collection == q.Collection || (q.Group != "" && q.Group == e.leaf) {
			emit()
		}
	})
	emit()
	return CancelFunc(unsub)
}

func (p *Postgres) SubscribeDoc(collection, id string, onNext func(*Document), onErr func(error)) CancelFunc {
	emit := func() {
		doc, err := p.Get(context.Background(), collection, id)
		if err != nil {
			if errorsIsNotFound(err) {
				onNext(nil)
				return
			}
			if onErr != nil {
				onErr(err)
			}
			return
		}
		onNext(doc)
	}

	unsub := p.hub.subscribe(func(e changeEvent) {
		if e.collection == collection && e.id == id {
			emit()
		}
	})
	emit()
	return CancelFunc(unsub)
}

func (p *Postgres) Batch() Batch {
	return &pgBatch{p: p}
}

type pgBatch struct {
	p   *Postgres
	ops []memOp
	mu  sync.Mutex
}

func (b *pgBatch) Create(collection, id string, data Doc) {
	b.add(memOp{kind: "create", collection: collection, id: id, data: data})
}

func (b *pgBatch) Set(collection, id string, data Doc) {
	b.add(memOp{kind: "set", collection: collection, id: id, data: data})
}

func (b *pgBatch) Update(collection, id string, data Doc) {
	b.add(memOp{kind: "update", collection: collection, id: id, data: data})
}

func (b *pgBatch) Merge(collection, id string, data Doc) {
	b.add(memOp{kind: "merge", collection: collection, id: id, data: data})
}

func (b *pgBatch) Delete(collection, id string) {
	b.add(memOp{kind: "delete", collection: collection, id: id})
}

func (b *pgBatch) add(op memOp) {
	b.mu.Lock()
	b.ops = append(b.ops, op)
	b.mu.Unlock()
}

func (b *pgBatch) Commit(ctx context.Context) error {
	tx, err := b.p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, op := range b.ops {
		var raw []byte
		if op.kind != "delete" {
			if raw, err = json.Marshal(op.data); err != nil {
				return fmt.Errorf("batch %s %s/%s: %w", op.kind, op.collection, op.id, err)
			}
		}
		switch op.kind {
		case "create":
			res, err := tx.ExecContext(ctx, `
				INSERT INTO documents (collection, leaf, id, data)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (collection, id) DO NOTHING
			`, op.collection, Leaf(op.collection), op.id, raw)
			if err != nil {
				return fmt.Errorf("batch create %s/%s: %w", op.collection, op.id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%s/%s: %w", op.collection, op.id, ErrExists)
			}
		case "set":
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO documents (collection, leaf, id, data)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (collection, id)
				DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
			`, op.collection, Leaf(op.collection), op.id, raw); err != nil {
				return fmt.Errorf("batch set %s/%s: %w", op.collection, op.id, err)
			}
		case "update":
			res, err := tx.ExecContext(ctx, `
				UPDATE documents
				SET data = data || $3, updated_at = NOW()
				WHERE collection = $1 AND id = $2
			`, op.collection, op.id, raw)
			if err != nil {
				return fmt.Errorf("batch update %s/%s: %w", op.collection, op.id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%s/%s: %w", op.collection, op.id, ErrNotFound)
			}
		case "merge":
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO documents (collection, leaf, id, data)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (collection, id)
				DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = NOW()
			`, op.collection, Leaf(op.collection), op.id, raw); err != nil {
				return fmt.Errorf("batch merge %s/%s: %w", op.collection, op.id, err)
			}
		case "delete":
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM documents WHERE collection = $1 AND id = $2
			`, op.collection, op.id); err != nil {
				return fmt.Errorf("batch delete %s/%s: %w", op.collection, op.id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	for _, op := range b.ops {
		b.p.hub.publish(changeEvent{collection: op.collection, leaf: Leaf(op.collection), id: op.id})
	}
	return nil
}
