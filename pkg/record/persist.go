package record

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Insert validates the record and stores it as a new row inside a
// transaction, assigns the gateway's identifier to the primary key, reruns
// the augment hook, and returns the identifier.
//
// A record that already has an identifier is left alone and Insert returns
// nil, nil. When the gateway insert fails the transaction is rolled back and
// the gateway's error is returned unchanged.
func (r *Record[T]) Insert(ctx context.Context) (any, error) {
	m := r.mapper
	if err := m.runValidate(r.entity); err != nil {
		return nil, err
	}
	if r.deleted {
		return nil, types.ErrRecordDeleted
	}
	if r.ID() != nil {
		return nil, nil
	}

	attrs := r.Project(m.now(), ProjectMode{Write: true})

	tx, err := m.gateway.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	id, err := tx.Insert(ctx, m.schema.Table, attrs)
	if err != nil {
		m.rollback(ctx, tx)
		return nil, err
	}
	// The key must fit the entity before the row is committed.
	if err := m.primary().Set(r.entity, id); err != nil {
		m.rollback(ctx, tx)
		return nil, fmt.Errorf("assign %s.%s: %w", m.schema.Table, m.schema.PrimaryKey, err)
	}
	if err := tx.Commit(); err != nil {
		_ = m.primary().Set(r.entity, nil)
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	r.applyStamps(attrs)

	written := attrs.Clone()
	written[m.schema.PrimaryColumn()] = id
	if err := m.runAugment(r.entity, written); err != nil {
		return id, err
	}

	m.logger.DebugContext(ctx, "record inserted", "table", m.schema.Table, "id", id)
	return id, nil
}

// Update validates the record and writes its set fields to the row addressed
// by its primary key inside a transaction. It returns the identifier, or
// nil, nil when the record has no identifier, has nothing to write, or no
// row matched.
func (r *Record[T]) Update(ctx context.Context) (any, error) {
	m := r.mapper
	if err := m.runValidate(r.entity); err != nil {
		return nil, err
	}
	if r.deleted {
		return nil, types.ErrRecordDeleted
	}
	id := r.ID()
	if id == nil {
		return nil, nil
	}

	attrs := r.Project(m.now(), ProjectMode{Write: true})
	if len(attrs) == 0 {
		return nil, nil
	}

	tx, err := m.gateway.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	n, err := tx.Update(ctx, m.schema.Table, r.where(id), attrs)
	if err != nil {
		m.rollback(ctx, tx)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	r.applyStamps(attrs)

	m.logger.DebugContext(ctx, "record updated", "table", m.schema.Table, "id", id)
	return id, nil
}

// Delete removes the row addressed by the record's primary key and returns
// the gateway's row count. A record without an identifier deletes nothing.
// Once a row is removed the record refuses further writes.
func (r *Record[T]) Delete(ctx context.Context) (int64, error) {
	m := r.mapper
	id := r.ID()
	if id == nil {
		return 0, nil
	}
	n, err := m.gateway.Delete(ctx, m.schema.Table, r.where(id))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.deleted = true
	}

	m.logger.DebugContext(ctx, "record deleted", "table", m.schema.Table, "id", id, "rows", n)
	return n, nil
}

func (r *Record[T]) where(id any) types.Predicate {
	return types.Predicate{r.mapper.schema.PrimaryColumn(): id}
}

func (m *Mapper[T]) rollback(ctx context.Context, tx types.Tx) {
	if err := tx.Rollback(); err != nil {
		m.logger.WarnContext(ctx, "rollback failed", "table", m.schema.Table, "error", err)
	}
}
