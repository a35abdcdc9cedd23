package record

import (
	"context"
	"sort"
	"strconv"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// call captures one gateway invocation for assertions.
type call struct {
	op      string
	table   string
	where   types.Predicate
	attrs   types.Row
	columns []string
}

// fakeGateway is an in-test gateway that records every call. Writes made
// through a transaction only land on Commit.
type fakeGateway struct {
	key   string
	rows  map[string][]types.Row
	calls []call

	nextID     int
	insertID   any // returned instead of nextID when set
	insertErr  error
	commitErr  error
	updateErr  error
	fetchErr   error
	beginErr   error
	begun      int
	committed  int
	rolledBack int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{key: "id", rows: map[string][]types.Row{}, nextID: 7}
}

func (g *fakeGateway) seed(table string, rows ...types.Row) {
	g.rows[table] = append(g.rows[table], rows...)
}

func (g *fakeGateway) ops() []string {
	out := make([]string, len(g.calls))
	for i, c := range g.calls {
		out[i] = c.op
	}
	return out
}

func (g *fakeGateway) lastCall(op string) (call, bool) {
	for i := len(g.calls) - 1; i >= 0; i-- {
		if g.calls[i].op == op {
			return g.calls[i], true
		}
	}
	return call{}, false
}

func (g *fakeGateway) FetchWhere(_ context.Context, table string, where types.Predicate) ([]types.Row, error) {
	g.calls = append(g.calls, call{op: "fetch", table: table, where: where})
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	var out []types.Row
	for _, r := range g.rows[table] {
		if where.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (g *fakeGateway) Select(_ context.Context, table string, columns []string) ([]types.Row, error) {
	g.calls = append(g.calls, call{op: "select", table: table, columns: columns})
	out := make([]types.Row, 0, len(g.rows[table]))
	for _, r := range g.rows[table] {
		out = append(out, r.Project(columns))
	}
	return out, nil
}

func (g *fakeGateway) Insert(ctx context.Context, table string, attrs types.Row) (any, error) {
	tx := &fakeTx{g: g}
	id, err := tx.Insert(ctx, table, attrs)
	if err != nil {
		return nil, err
	}
	return id, tx.Commit()
}

func (g *fakeGateway) Update(ctx context.Context, table string, where types.Predicate, attrs types.Row) (int64, error) {
	tx := &fakeTx{g: g}
	n, err := tx.Update(ctx, table, where, attrs)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (g *fakeGateway) Delete(_ context.Context, table string, where types.Predicate) (int64, error) {
	g.calls = append(g.calls, call{op: "delete", table: table, where: where})
	var kept []types.Row
	var n int64
	for _, r := range g.rows[table] {
		if where.Matches(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	g.rows[table] = kept
	return n, nil
}

func (g *fakeGateway) Begin(context.Context) (types.Tx, error) {
	g.calls = append(g.calls, call{op: "begin"})
	if g.beginErr != nil {
		return nil, g.beginErr
	}
	g.begun++
	return &fakeTx{g: g}, nil
}

type fakeTx struct {
	g       *fakeGateway
	pending []func()
}

func (t *fakeTx) FetchWhere(ctx context.Context, table string, where types.Predicate) ([]types.Row, error) {
	return t.g.FetchWhere(ctx, table, where)
}

func (t *fakeTx) Select(ctx context.Context, table string, columns []string) ([]types.Row, error) {
	return t.g.Select(ctx, table, columns)
}

func (t *fakeTx) Insert(_ context.Context, table string, attrs types.Row) (any, error) {
	t.g.calls = append(t.g.calls, call{op: "insert", table: table, attrs: attrs.Clone()})
	if t.g.insertErr != nil {
		return nil, t.g.insertErr
	}
	var id any = strconv.Itoa(t.g.nextID)
	t.g.nextID++
	if t.g.insertID != nil {
		id = t.g.insertID
	}
	row := attrs.Clone()
	row[t.g.key] = id
	t.pending = append(t.pending, func() { t.g.rows[table] = append(t.g.rows[table], row) })
	return id, nil
}

func (t *fakeTx) Update(_ context.Context, table string, where types.Predicate, attrs types.Row) (int64, error) {
	t.g.calls = append(t.g.calls, call{op: "update", table: table, where: where, attrs: attrs.Clone()})
	if t.g.updateErr != nil {
		return 0, t.g.updateErr
	}
	var n int64
	for _, r := range t.g.rows[table] {
		if where.Matches(r) {
			n++
			row := r
			t.pending = append(t.pending, func() {
				for k, v := range attrs {
					row[k] = v
				}
			})
		}
	}
	return n, nil
}

func (t *fakeTx) Delete(ctx context.Context, table string, where types.Predicate) (int64, error) {
	return t.g.Delete(ctx, table, where)
}

func (t *fakeTx) Commit() error {
	t.g.calls = append(t.g.calls, call{op: "commit"})
	if t.g.commitErr != nil {
		t.pending = nil
		return t.g.commitErr
	}
	t.g.committed++
	for _, fn := range t.pending {
		fn()
	}
	t.pending = nil
	return nil
}

func (t *fakeTx) Rollback() error {
	t.g.calls = append(t.g.calls, call{op: "rollback"})
	t.g.rolledBack++
	t.pending = nil
	return nil
}

func sortedKeys(r types.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
