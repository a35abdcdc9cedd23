package record

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// GetQuery loads the single row addressed by id. Entities override it to
// compose richer lookups (joins, computed columns) as long as the result is
// one row. A nil row means no match.
type GetQuery func(ctx context.Context, q types.Querier, schema types.Schema, id any) (types.Row, error)

// ListQuery loads every row for GetAll, restricted to columns when non-empty.
type ListQuery func(ctx context.Context, q types.Querier, schema types.Schema, columns []string) ([]types.Row, error)

// Mapper holds everything shared by the records of one entity type.
// A Mapper is safe for concurrent use; the records it builds are not.
type Mapper[T any] struct {
	schema    types.Schema
	accessors Accessors[T]
	gateway   types.Gateway
	validate  func(*T) error
	augment   func(*T, types.Row) error
	getQuery  GetQuery
	listQuery ListQuery
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Mapper.
type Option[T any] func(*Mapper[T])

// WithValidator sets the hook run before every Insert and Update. A non-nil
// error aborts the write and is returned unchanged.
func WithValidator[T any](fn func(*T) error) Option[T] {
	return func(m *Mapper[T]) { m.validate = fn }
}

// WithAugmenter sets the hook run after every construction and again once
// Insert has assigned the identifier. It receives the row the record was
// built from (the written payload plus key after Insert), or nil for a
// default record.
func WithAugmenter[T any](fn func(*T, types.Row) error) Option[T] {
	return func(m *Mapper[T]) { m.augment = fn }
}

// WithGetQuery replaces the single-row lookup used by Get and FromID.
func WithGetQuery[T any](q GetQuery) Option[T] {
	return func(m *Mapper[T]) { m.getQuery = q }
}

// WithListQuery replaces the lookup used by GetAll.
func WithListQuery[T any](q ListQuery) Option[T] {
	return func(m *Mapper[T]) { m.listQuery = q }
}

// WithClock sets the time source used for created/modified stamps.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(m *Mapper[T]) { m.now = now }
}

// WithLogger sets the logger for write events.
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(m *Mapper[T]) { m.logger = l }
}

// New builds a Mapper for entity type T. Every schema field needs an
// accessor; the schema itself must validate.
func New[T any](schema types.Schema, accessors Accessors[T], gw types.Gateway, opts ...Option[T]) (*Mapper[T], error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	for _, f := range schema.Fields {
		acc, ok := accessors[f.Name]
		if !ok || acc.Get == nil || acc.Set == nil {
			return nil, fmt.Errorf("%w: %s: no accessor for field %q", types.ErrInvalidSchema, schema.Table, f.Name)
		}
	}
	if gw == nil {
		return nil, fmt.Errorf("new mapper %s: gateway is nil", schema.Table)
	}

	m := &Mapper[T]{
		schema:    schema,
		accessors: accessors,
		gateway:   gw,
		getQuery:  DefaultGetQuery,
		listQuery: DefaultListQuery,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Schema returns the mapper's schema descriptor.
func (m *Mapper[T]) Schema() types.Schema { return m.schema }

// Gateway returns the storage gateway the mapper writes through.
func (m *Mapper[T]) Gateway() types.Gateway { return m.gateway }

// WithGateway returns a copy of the mapper bound to another gateway.
func (m *Mapper[T]) WithGateway(gw types.Gateway) *Mapper[T] {
	cp := *m
	cp.gateway = gw
	return &cp
}

func (m *Mapper[T]) runValidate(e *T) error {
	if m.validate == nil {
		return nil
	}
	return m.validate(e)
}

func (m *Mapper[T]) runAugment(e *T, row types.Row) error {
	if m.augment == nil {
		return nil
	}
	if err := m.augment(e, row); err != nil {
		return fmt.Errorf("augment %s: %w", m.schema.Table, err)
	}
	return nil
}

func (m *Mapper[T]) primary() Accessor[T] {
	return m.accessors[m.schema.PrimaryKey]
}
