package record

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// ConvertValue renders timestamps and decimals as text so the value survives
// a text interchange format unchanged. Other values are returned as is.
func ConvertValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return types.FormatTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return types.FormatTime(*t)
	case decimal.Decimal:
		return t.String()
	case *decimal.Decimal:
		if t == nil {
			return nil
		}
		return t.String()
	default:
		return v
	}
}

// JSONSerializable returns the record's set fields keyed by logical name,
// ready for encoding/json. The safe variant leaves out every sensitive
// field, password and salt included.
func (r *Record[T]) JSONSerializable(safe bool) map[string]any {
	fields := r.mapper.schema.Fields
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if safe && f.IsSensitive() {
			continue
		}
		v := r.mapper.accessors[f.Name].Get(r.entity)
		if !Truthy(v) {
			continue
		}
		out[f.Name] = ConvertValue(v)
	}
	return out
}

// MarshalJSON encodes the safe serialization.
func (r *Record[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.JSONSerializable(true))
}
