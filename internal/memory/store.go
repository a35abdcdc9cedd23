package memory

import (
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// store holds table rows in insertion order. It does no locking; Gateway and
// Tx guard it.
type store struct {
	keys   map[string]string
	tables map[string][]types.Row
}

func newStore(keys map[string]string) *store {
	return &store{keys: keys, tables: make(map[string][]types.Row, len(keys))}
}

// snapshot copies every table and row so writes to the copy leave s alone.
func (s *store) snapshot() *store {
	cp := newStore(s.keys)
	for table, rows := range s.tables {
		out := make([]types.Row, len(rows))
		for i, r := range rows {
			out[i] = r.Clone()
		}
		cp.tables[table] = out
	}
	return cp
}

func (s *store) key(table string) (string, error) {
	k, ok := s.keys[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrTableNotFound, table)
	}
	return k, nil
}

func (s *store) fetch(table string, where types.Predicate) ([]types.Row, error) {
	if _, err := s.key(table); err != nil {
		return nil, err
	}
	var out []types.Row
	for _, r := range s.tables[table] {
		if where.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *store) selectRows(table string, columns []string) ([]types.Row, error) {
	if _, err := s.key(table); err != nil {
		return nil, err
	}
	rows := s.tables[table]
	out := make([]types.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Project(columns))
	}
	return out, nil
}

// insert stores row, which must already carry its key.
func (s *store) insert(table string, row types.Row) error {
	k, err := s.key(table)
	if err != nil {
		return err
	}
	id := types.StorageText(row[k])
	for _, r := range s.tables[table] {
		if types.StorageText(r[k]) == id {
			return fmt.Errorf("insert %s: duplicate key %s", table, id)
		}
	}
	s.tables[table] = append(s.tables[table], row)
	return nil
}

func (s *store) update(table string, where types.Predicate, attrs types.Row) (int64, error) {
	if _, err := s.key(table); err != nil {
		return 0, err
	}
	var n int64
	for _, r := range s.tables[table] {
		if !where.Matches(r) {
			continue
		}
		for col, v := range attrs {
			r[col] = v
		}
		n++
	}
	return n, nil
}

func (s *store) delete(table string, where types.Predicate) (int64, error) {
	if _, err := s.key(table); err != nil {
		return 0, err
	}
	rows := s.tables[table]
	kept := rows[:0]
	var n int64
	for _, r := range rows {
		if where.Matches(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.tables[table] = kept
	return n, nil
}
