package record

import "reflect"

// Truthy reports whether v counts as set: not nil, not an empty string,
// slice, or map, not a zero number, array, or struct, not false, and not a
// zero time or decimal. Pointers are followed.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		return Truthy(rv.Elem().Interface())
	}
	if z, ok := v.(interface{ IsZero() bool }); ok {
		return !z.IsZero()
	}
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Chan:
		return rv.Len() > 0
	}
	return !rv.IsZero()
}
