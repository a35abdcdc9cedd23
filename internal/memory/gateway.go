// Package memory implements an in-process storage gateway. Rows live in
// memory and, when a data directory is set, are mirrored to one JSONL file
// per table after every committed write.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Gateway is a types.Gateway backed by Go maps. It is safe for concurrent
// use.
type Gateway struct {
	mu    sync.RWMutex
	data  *store
	dir   string
	newID func() (string, error)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithIDFunc replaces the UUIDv7 identifier generator.
func WithIDFunc(fn func() (string, error)) Option {
	return func(g *Gateway) { g.newID = fn }
}

// New returns an empty, non-persistent gateway for the given schemas.
func New(schemas []types.Schema, opts ...Option) *Gateway {
	g := &Gateway{
		data:  newStore(types.Keys(schemas...)),
		newID: newUUID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Open returns a gateway that loads and persists <dataDir>/<table>.jsonl.
// The directory is created if needed.
func Open(dataDir string, schemas []types.Schema, opts ...Option) (*Gateway, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}
	g := New(schemas, opts...)
	g.dir = dataDir
	for table := range g.data.keys {
		rows, err := readJSONL(tableFile(dataDir, table))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", table, err)
		}
		g.data.tables[table] = rows
	}
	return g, nil
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// FetchWhere implements types.Querier.
func (g *Gateway) FetchWhere(_ context.Context, table string, where types.Predicate) ([]types.Row, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.data.fetch(table, where)
}

// Select implements types.Querier.
func (g *Gateway) Select(_ context.Context, table string, columns []string) ([]types.Row, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.data.selectRows(table, columns)
}

// Insert implements types.Querier. The row keeps a caller-supplied key and
// otherwise receives a new UUIDv7.
func (g *Gateway) Insert(ctx context.Context, table string, attrs types.Row) (any, error) {
	tx, err := g.Begin(ctx)
	if err != nil {
		return nil, err
	}
	id, err := tx.Insert(ctx, table, attrs)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return id, tx.Commit()
}

// Update implements types.Querier.
func (g *Gateway) Update(ctx context.Context, table string, where types.Predicate, attrs types.Row) (int64, error) {
	tx, err := g.Begin(ctx)
	if err != nil {
		return 0, err
	}
	n, err := tx.Update(ctx, table, where, attrs)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	return n, tx.Commit()
}

// Delete implements types.Querier.
func (g *Gateway) Delete(ctx context.Context, table string, where types.Predicate) (int64, error) {
	tx, err := g.Begin(ctx)
	if err != nil {
		return 0, err
	}
	n, err := tx.Delete(ctx, table, where)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	return n, tx.Commit()
}

// Begin opens a transaction over a private snapshot of the tables. Reads in
// the transaction see its own writes; other callers see them after Commit.
func (g *Gateway) Begin(context.Context) (types.Tx, error) {
	g.mu.RLock()
	snap := g.data.snapshot()
	g.mu.RUnlock()
	return &Tx{g: g, snap: snap}, nil
}

// Len returns the number of rows in table.
func (g *Gateway) Len(table string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.data.tables[table])
}

type change struct {
	op    string
	table string
	where types.Predicate
	row   types.Row
}

// apply replays a committed journal onto a copy of the live tables and
// swaps the copy in only when every change applies and every touched JSONL
// file is rewritten. A failed commit leaves the gateway unchanged.
func (g *Gateway) apply(journal []change) error {
	if len(journal) == 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	staged := g.data.snapshot()
	touched := map[string]bool{}
	for _, c := range journal {
		var err error
		switch c.op {
		case "insert":
			err = staged.insert(c.table, c.row.Clone())
		case "update":
			_, err = staged.update(c.table, c.where, c.row)
		case "delete":
			_, err = staged.delete(c.table, c.where)
		}
		if err != nil {
			return fmt.Errorf("commit %s %s: %w", c.op, c.table, err)
		}
		touched[c.table] = true
	}

	if g.dir != "" {
		tables := make([]string, 0, len(touched))
		for t := range touched {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			if err := writeJSONL(tableFile(g.dir, t), staged.tables[t]); err != nil {
				return fmt.Errorf("persisting %s: %w", t, err)
			}
		}
	}
	g.data = staged
	return nil
}

// Tx is a memory transaction. Writes go to a snapshot and a journal; Commit
// replays the journal onto the gateway.
type Tx struct {
	g       *Gateway
	snap    *store
	journal []change
	done    bool
}

func (t *Tx) check() error {
	if t.done {
		return types.ErrTxDone
	}
	return nil
}

// FetchWhere implements types.Querier.
func (t *Tx) FetchWhere(_ context.Context, table string, where types.Predicate) ([]types.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.snap.fetch(table, where)
}

// Select implements types.Querier.
func (t *Tx) Select(_ context.Context, table string, columns []string) ([]types.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.snap.selectRows(table, columns)
}

// Insert implements types.Querier.
func (t *Tx) Insert(_ context.Context, table string, attrs types.Row) (any, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	key, err := t.snap.key(table)
	if err != nil {
		return nil, err
	}
	row := attrs.Clone()
	if row == nil {
		row = types.Row{}
	}
	if !record.Truthy(row[key]) {
		id, err := t.g.newID()
		if err != nil {
			return nil, fmt.Errorf("generating id: %w", err)
		}
		row[key] = id
	}
	if err := t.snap.insert(table, row); err != nil {
		return nil, err
	}
	t.journal = append(t.journal, change{op: "insert", table: table, row: row.Clone()})
	return row[key], nil
}

// Update implements types.Querier.
func (t *Tx) Update(_ context.Context, table string, where types.Predicate, attrs types.Row) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	n, err := t.snap.update(table, where, attrs)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.journal = append(t.journal, change{op: "update", table: table, where: where, row: attrs.Clone()})
	}
	return n, nil
}

// Delete implements types.Querier.
func (t *Tx) Delete(_ context.Context, table string, where types.Predicate) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	n, err := t.snap.delete(table, where)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.journal = append(t.journal, change{op: "delete", table: table, where: where})
	}
	return n, nil
}

// Commit applies the transaction's writes.
func (t *Tx) Commit() error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	return t.g.apply(t.journal)
}

// Rollback discards the transaction's writes.
func (t *Tx) Rollback() error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	t.journal = nil
	return nil
}
