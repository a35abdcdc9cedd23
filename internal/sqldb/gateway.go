package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// execer is the statement surface shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier runs the row operations against an execer.
type querier struct {
	ex      execer
	dialect Dialect
	keys    map[string]string
}

// Gateway is a types.Gateway over a *sql.DB.
type Gateway struct {
	querier
	db *sql.DB
}

// New wraps db. The schemas tell the gateway each table's key column.
func New(db *sql.DB, dialect Dialect, schemas ...types.Schema) *Gateway {
	return &Gateway{
		querier: querier{ex: db, dialect: dialect, keys: types.Keys(schemas...)},
		db:      db,
	}
}

// DB returns the underlying database handle.
func (g *Gateway) DB() *sql.DB { return g.db }

// Close closes the database handle.
func (g *Gateway) Close() error { return g.db.Close() }

// Begin starts a database transaction.
func (g *Gateway) Begin(ctx context.Context) (types.Tx, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{querier: querier{ex: tx, dialect: g.dialect, keys: g.keys}, tx: tx}, nil
}

// Tx is a types.Tx over a *sql.Tx.
type Tx struct {
	querier
	tx *sql.Tx
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

func (q querier) key(table string) (string, error) {
	k, ok := q.keys[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrTableNotFound, table)
	}
	return k, nil
}

// where renders the predicate with sorted columns, numbering markers from
// start.
func (q querier) where(p types.Predicate, start int) (string, []any) {
	if len(p) == 0 {
		return "", nil
	}
	cols := sortedColumns(p)
	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		parts[i] = Quote(c) + " = " + q.dialect.Placeholder(start+i)
		args[i] = types.StorageValue(p[c])
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// FetchWhere implements types.Querier.
func (q querier) FetchWhere(ctx context.Context, table string, where types.Predicate) ([]types.Row, error) {
	key, err := q.key(table)
	if err != nil {
		return nil, err
	}
	clause, args := q.where(where, 1)
	query := "SELECT * FROM " + Quote(table) + clause + " ORDER BY " + Quote(key)
	return q.query(ctx, query, args...)
}

// Select implements types.Querier.
func (q querier) Select(ctx context.Context, table string, columns []string) ([]types.Row, error) {
	key, err := q.key(table)
	if err != nil {
		return nil, err
	}
	list := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = Quote(c)
		}
		list = strings.Join(quoted, ", ")
	}
	return q.query(ctx, "SELECT "+list+" FROM "+Quote(table)+" ORDER BY "+Quote(key))
}

// Insert implements types.Querier.
func (q querier) Insert(ctx context.Context, table string, attrs types.Row) (any, error) {
	key, err := q.key(table)
	if err != nil {
		return nil, err
	}

	var query string
	var args []any
	if len(attrs) == 0 {
		query = "INSERT INTO " + Quote(table) + " DEFAULT VALUES"
	} else {
		cols := sortedColumns(attrs)
		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		args = make([]any, len(cols))
		for i, c := range cols {
			quoted[i] = Quote(c)
			marks[i] = q.dialect.Placeholder(i + 1)
			args[i] = types.StorageValue(attrs[c])
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			Quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	}

	if q.dialect.Returning {
		var id any
		if err := q.ex.QueryRowContext(ctx, query+" RETURNING "+Quote(key), args...).Scan(&id); err != nil {
			return nil, err
		}
		return normalize(id), nil
	}

	res, err := q.ex.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if v, ok := attrs[key]; ok && record.Truthy(v) {
		return v, nil
	}
	return res.LastInsertId()
}

// Update implements types.Querier.
func (q querier) Update(ctx context.Context, table string, where types.Predicate, attrs types.Row) (int64, error) {
	if _, err := q.key(table); err != nil {
		return 0, err
	}
	if len(attrs) == 0 {
		return 0, nil
	}
	cols := sortedColumns(attrs)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(where))
	for i, c := range cols {
		sets[i] = Quote(c) + " = " + q.dialect.Placeholder(i+1)
		args = append(args, types.StorageValue(attrs[c]))
	}
	clause, whereArgs := q.where(where, len(cols)+1)
	args = append(args, whereArgs...)

	res, err := q.ex.ExecContext(ctx, "UPDATE "+Quote(table)+" SET "+strings.Join(sets, ", ")+clause, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete implements types.Querier.
func (q querier) Delete(ctx context.Context, table string, where types.Predicate) (int64, error) {
	if _, err := q.key(table); err != nil {
		return 0, err
	}
	clause, args := q.where(where, 1)
	res, err := q.ex.ExecContext(ctx, "DELETE FROM "+Quote(table)+clause, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q querier) query(ctx context.Context, query string, args ...any) ([]types.Row, error) {
	rows, err := q.ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []types.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(types.Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalize turns driver byte slices into strings.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func sortedColumns[M ~map[string]any](m M) []string {
	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
