package types

import (
	"time"

	"github.com/spf13/cast"
)

// Row is a single stored record keyed by storage column name.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project returns a copy holding only the given columns. A nil or empty
// column list keeps every column.
func (r Row) Project(columns []string) Row {
	if len(columns) == 0 {
		return r.Clone()
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Predicate is a conjunction of column equality tests.
type Predicate map[string]any

// Matches reports whether the row satisfies every equality in the predicate.
// Values are compared by their storage text form so that an identifier held
// as "7" matches a stored 7.
func (p Predicate) Matches(r Row) bool {
	for col, want := range p {
		got, ok := r[col]
		if !ok {
			return false
		}
		if StorageText(got) != StorageText(want) {
			return false
		}
	}
	return true
}

// TimeLayout is the text form used for every stored timestamp.
const TimeLayout = time.RFC3339Nano

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// StorageValue normalizes a value before it is handed to a storage engine.
// Timestamps become UTC RFC 3339 strings; everything else passes through.
func StorageValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return FormatTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return FormatTime(*t)
	default:
		return v
	}
}

// StorageText renders a value as the string a text-only store keeps.
func StorageText(v any) string {
	return cast.ToString(StorageValue(v))
}
