package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Accessor reads and writes one logical field of an entity. Set receives raw
// storage values and must coerce them to the field's type; Set(nil) resets
// the field to its zero value.
type Accessor[T any] struct {
	Get func(*T) any
	Set func(*T, any) error
}

// Accessors maps logical field names to their accessors.
type Accessors[T any] map[string]Accessor[T]

func invalid(v any, err error) error {
	return fmt.Errorf("%w: %v (%T)", types.ErrInvalidData, err, v)
}

// String binds a string field.
func String[T any](field func(*T) *string) Accessor[T] {
	return Accessor[T]{
		Get: func(e *T) any { return *field(e) },
		Set: func(e *T, v any) error {
			if v == nil {
				*field(e) = ""
				return nil
			}
			s, err := cast.ToStringE(v)
			if err != nil {
				return invalid(v, err)
			}
			*field(e) = s
			return nil
		},
	}
}

// Int64 binds an int64 field.
func Int64[T any](field func(*T) *int64) Accessor[T] {
	return Accessor[T]{
		Get: func(e *T) any { return *field(e) },
		Set: func(e *T, v any) error {
			if v == nil {
				*field(e) = 0
				return nil
			}
			n, err := cast.ToInt64E(v)
			if err != nil {
				return invalid(v, err)
			}
			*field(e) = n
			return nil
		},
	}
}

// Float64 binds a float64 field.
func Float64[T any](field func(*T) *float64) Accessor[T] {
	return Accessor[T]{
		Get: func(e *T) any { return *field(e) },
		Set: func(e *T, v any) error {
			if v == nil {
				*field(e) = 0
				return nil
			}
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return invalid(v, err)
			}
			*field(e) = f
			return nil
		},
	}
}

// Bool binds a bool field.
func Bool[T any](field func(*T) *bool) Accessor[T] {
	return Accessor[T]{
		Get: func(e *T) any { return *field(e) },
		Set: func(e *T, v any) error {
			if v == nil {
				*field(e) = false
				return nil
			}
			b, err := cast.ToBoolE(v)
			if err != nil {
				return invalid(v, err)
			}
			*field(e) = b
			return nil
		},
	}
}

// Time binds a time.Time field. Strings are parsed as RFC 3339 first and
// then with the layouts spf13/cast understands.
func Time[T any](field func(*T) *time.Time) Accessor[T] {
	return Accessor[T]{
		Get: func(e *T) any { return *field(e) },
		Set: func(e *T, v any) error {
			t, err := toTime(v)
			if err != nil {
				return invalid(v, err)
			}
			*field(e) = t
			return nil
		},
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, nil
		}
		return t.UTC(), nil
	case []byte:
		return toTime(string(t))
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC(), nil
		}
	}
	parsed, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

// Decimal binds a fixed-precision decimal field.
func Decimal[T any](field func(*T) *decimal.Decimal) Accessor[T] {
	return Accessor[T]{
		Get: func(e *T) any { return *field(e) },
		Set: func(e *T, v any) error {
			d, err := toDecimal(v)
			if err != nil {
				return invalid(v, err)
			}
			*field(e) = d
			return nil
		},
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Decimal{}, nil
	case decimal.Decimal:
		return t, nil
	case *decimal.Decimal:
		if t == nil {
			return decimal.Decimal{}, nil
		}
		return *t, nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case []byte:
		return toDecimal(string(t))
	case json.Number:
		return toDecimal(string(t))
	case string:
		if t == "" {
			return decimal.Decimal{}, nil
		}
		return decimal.NewFromString(t)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(n), nil
}
