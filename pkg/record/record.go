package record

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Record is one instance of a schema-described entity. It exclusively owns
// its entity value; callers mutate the entity directly and then call
// Insert, Update, or Delete.
type Record[T any] struct {
	mapper  *Mapper[T]
	entity  *T
	raw     types.Row
	deleted bool
}

// Construct picks one of the three construction paths in priority order:
// by identifier when id is set, by raw row when row is non-empty, and by
// defaults otherwise.
func (m *Mapper[T]) Construct(ctx context.Context, id any, row types.Row) (*Record[T], error) {
	switch {
	case Truthy(id):
		return m.FromID(ctx, id)
	case len(row) > 0:
		return m.FromRow(row)
	default:
		return m.New()
	}
}

// New returns a record with every field at its zero value and no identifier.
func (m *Mapper[T]) New() (*Record[T], error) {
	r := &Record[T]{mapper: m, entity: new(T)}
	if err := m.runAugment(r.entity, nil); err != nil {
		return nil, err
	}
	return r, nil
}

// FromRow hydrates a record from a pre-fetched row. Only mapped columns are
// read; the identifier comes from the primary-key column when present.
func (m *Mapper[T]) FromRow(row types.Row) (*Record[T], error) {
	r := &Record[T]{mapper: m, entity: new(T), raw: row}
	if err := r.populate(row); err != nil {
		return nil, err
	}
	if err := m.runAugment(r.entity, row); err != nil {
		return nil, err
	}
	return r, nil
}

// FromID loads the row addressed by id and hydrates a record from it.
// It returns nil, nil when no row matches.
func (m *Mapper[T]) FromID(ctx context.Context, id any) (*Record[T], error) {
	row, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	r := &Record[T]{mapper: m, entity: new(T), raw: row}
	if err := r.populate(row); err != nil {
		return nil, err
	}
	// A custom get query may leave out the key column.
	if _, ok := row[m.schema.PrimaryColumn()]; !ok {
		if err := m.primary().Set(r.entity, id); err != nil {
			return nil, fmt.Errorf("set %s.%s: %w", m.schema.Table, m.schema.PrimaryKey, err)
		}
	}
	if err := m.runAugment(r.entity, row); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Record[T]) populate(row types.Row) error {
	for _, f := range r.mapper.schema.Fields {
		v, ok := row[f.Column]
		if !ok {
			continue
		}
		if err := r.mapper.accessors[f.Name].Set(r.entity, v); err != nil {
			return fmt.Errorf("set %s.%s: %w", r.mapper.schema.Table, f.Name, err)
		}
	}
	return nil
}

// Entity returns the record's entity for direct mutation.
func (r *Record[T]) Entity() *T { return r.entity }

// Raw returns the row the record was built from, or nil.
func (r *Record[T]) Raw() types.Row { return r.raw }

// Schema returns the schema of the record's type.
func (r *Record[T]) Schema() types.Schema { return r.mapper.schema }

// ID returns the primary-key value, or nil when the record has never been
// stored.
func (r *Record[T]) ID() any {
	v := r.mapper.primary().Get(r.entity)
	if !Truthy(v) {
		return nil
	}
	return v
}

// IsPersisted reports whether the record carries an identifier.
func (r *Record[T]) IsPersisted() bool { return r.ID() != nil }

// Deleted reports whether Delete removed the record's row.
func (r *Record[T]) Deleted() bool { return r.deleted }

// Assign sets a field by logical name, coercing value through the field's
// accessor.
func (r *Record[T]) Assign(field string, value any) error {
	acc, ok := r.mapper.accessors[field]
	if !ok || !r.mapper.schema.Has(field) {
		return fmt.Errorf("assign %s.%s: %w", r.mapper.schema.Table, field, types.ErrUnknownField)
	}
	if err := acc.Set(r.entity, value); err != nil {
		return fmt.Errorf("assign %s.%s: %w", r.mapper.schema.Table, field, err)
	}
	return nil
}

// Value reads a field by logical name.
func (r *Record[T]) Value(field string) (any, error) {
	acc, ok := r.mapper.accessors[field]
	if !ok || !r.mapper.schema.Has(field) {
		return nil, fmt.Errorf("value %s.%s: %w", r.mapper.schema.Table, field, types.ErrUnknownField)
	}
	return acc.Get(r.entity), nil
}

// String renders the safe serialization as JSON.
func (r *Record[T]) String() string {
	data, err := json.Marshal(r.JSONSerializable(true))
	if err != nil {
		return fmt.Sprintf("%s<%v>", r.mapper.schema.Table, r.ID())
	}
	return string(data)
}
