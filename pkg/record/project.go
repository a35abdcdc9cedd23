package record

import (
	"time"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// ProjectMode selects how Project shapes its output.
type ProjectMode struct {
	// Write prepares a gateway payload: the primary key is dropped, time
	// values are rendered as stored text, and created/modified are stamped.
	Write bool
	// Safe drops every sensitive field.
	Safe bool
}

// Project returns the record's set fields keyed by storage column.
//
// In write mode, now is the single timestamp used for both stamps: created
// is stamped only while the entity has no created value, modified is
// stamped on every write.
func (r *Record[T]) Project(now time.Time, mode ProjectMode) types.Row {
	s := r.mapper.schema
	attrs := make(types.Row, len(s.Fields))
	for _, f := range s.Fields {
		v := r.mapper.accessors[f.Name].Get(r.entity)
		if !Truthy(v) {
			continue
		}
		if mode.Write {
			v = types.StorageValue(v)
		}
		attrs[f.Column] = v
	}

	if mode.Write {
		delete(attrs, s.PrimaryColumn())
		stamp := types.FormatTime(now)
		if col, ok := s.Column(types.FieldCreated); ok {
			if _, set := attrs[col]; !set {
				attrs[col] = stamp
			}
		}
		if col, ok := s.Column(types.FieldModified); ok {
			attrs[col] = stamp
		}
	}

	if mode.Safe {
		for _, f := range s.Fields {
			if f.IsSensitive() {
				delete(attrs, f.Column)
			}
		}
	}
	return attrs
}

// applyStamps copies the created/modified values of a written payload back
// onto the entity.
func (r *Record[T]) applyStamps(attrs types.Row) {
	s := r.mapper.schema
	for _, name := range []string{types.FieldCreated, types.FieldModified} {
		col, ok := s.Column(name)
		if !ok {
			continue
		}
		v, ok := attrs[col]
		if !ok {
			continue
		}
		if err := r.mapper.accessors[name].Set(r.entity, v); err != nil {
			r.mapper.logger.Warn("copy stamp to entity", "table", s.Table, "field", name, "error", err)
		}
	}
}
