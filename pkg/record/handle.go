package record

import "context"

// Handle is the type-erased view of a record used by code that works across
// entity types, such as the CLI and the HTTP API.
type Handle interface {
	ID() any
	IsPersisted() bool
	Assign(field string, value any) error
	Value(field string) (any, error)
	Insert(ctx context.Context) (any, error)
	Update(ctx context.Context) (any, error)
	Delete(ctx context.Context) (int64, error)
	JSONSerializable(safe bool) map[string]any
}

var _ Handle = (*Record[struct{}])(nil)

// Handles converts typed records to handles.
func Handles[T any](records []*Record[T]) []Handle {
	out := make([]Handle, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
