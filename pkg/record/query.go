package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DefaultGetQuery fetches the row whose primary-key column equals id.
func DefaultGetQuery(ctx context.Context, q types.Querier, schema types.Schema, id any) (types.Row, error) {
	rows, err := q.FetchWhere(ctx, schema.Table, types.Predicate{schema.PrimaryColumn(): id})
	if err != nil {
		return nil, err
	}
	return first(rows), nil
}

// DefaultListQuery selects every row of the schema's table.
func DefaultListQuery(ctx context.Context, q types.Querier, schema types.Schema, columns []string) ([]types.Row, error) {
	return q.Select(ctx, schema.Table, columns)
}

func first(rows []types.Row) types.Row {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	return rows[0]
}

// Get returns the raw row addressed by id, or nil when none matches.
func (m *Mapper[T]) Get(ctx context.Context, id any) (types.Row, error) {
	row, err := m.getQuery(ctx, m.gateway, m.schema, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %v: %w", m.schema.Table, id, err)
	}
	if len(row) == 0 {
		return nil, nil
	}
	return row, nil
}

// GetBy returns a record hydrated from the first row whose column for field
// equals value, or nil when none matches. An undeclared field is an error.
func (m *Mapper[T]) GetBy(ctx context.Context, field string, value any) (*Record[T], error) {
	col, ok := m.schema.Column(field)
	if !ok {
		return nil, fmt.Errorf("get %s by %s: %w", m.schema.Table, field, types.ErrUnknownField)
	}
	rows, err := m.gateway.FetchWhere(ctx, m.schema.Table, types.Predicate{col: value})
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", m.schema.Table, field, err)
	}
	row := first(rows)
	if row == nil {
		return nil, nil
	}
	return m.FromRow(row)
}

// GetWhere is GetBy under its older name.
func (m *Mapper[T]) GetWhere(ctx context.Context, field string, value any) (*Record[T], error) {
	return m.GetBy(ctx, field, value)
}

// ListOption restricts GetAll.
type ListOption func(*listOptions)

type listOptions struct {
	fields []string
}

// Columns limits GetAll to the given logical fields.
func Columns(fields ...string) ListOption {
	return func(o *listOptions) { o.fields = append(o.fields, fields...) }
}

// GetAll returns one hydrated record per row of the table, in gateway order.
func (m *Mapper[T]) GetAll(ctx context.Context, opts ...ListOption) ([]*Record[T], error) {
	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}
	var columns []string
	for _, f := range o.fields {
		col, ok := m.schema.Column(f)
		if !ok {
			return nil, fmt.Errorf("list %s: %s: %w", m.schema.Table, f, types.ErrUnknownField)
		}
		columns = append(columns, col)
	}

	rows, err := m.listQuery(ctx, m.gateway, m.schema, columns)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", m.schema.Table, err)
	}
	out := make([]*Record[T], 0, len(rows))
	for _, row := range rows {
		r, err := m.FromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Exists returns the raw row addressed by id, or nil when none matches.
// Not-found conditions are never reported as errors.
func (m *Mapper[T]) Exists(ctx context.Context, id any) (types.Row, error) {
	row, err := m.Get(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	return row, err
}
