package entity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Kind is the type-erased face of one entity type, used by the CLI and the
// HTTP API to work with records by name.
type Kind struct {
	Name   string
	Schema types.Schema

	// New returns an unsaved record with default values.
	New func() (record.Handle, error)
	// Load returns the record with the given id, or nil when absent.
	Load func(ctx context.Context, id string) (record.Handle, error)
	// List returns every record, optionally restricted to fields.
	List func(ctx context.Context, fields ...string) ([]record.Handle, error)
	// Assign sets one field from user input.
	Assign func(h record.Handle, field string, value any) error
	// Render returns the safe serialization plus any derived values.
	Render func(h record.Handle) map[string]any
}

// Registry holds the kinds bound to one gateway.
type Registry struct {
	kinds map[string]Kind
}

// Schemas returns the schema of every entity type.
func Schemas() []types.Schema {
	return []types.Schema{UserSchema, ProductSchema}
}

// NewRegistry builds the users and products kinds over gw.
func NewRegistry(gw types.Gateway, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	users, err := NewUsers(gw, record.WithLogger[User](logger))
	if err != nil {
		return nil, fmt.Errorf("users mapper: %w", err)
	}
	products, err := NewProducts(gw, record.WithLogger[Product](logger))
	if err != nil {
		return nil, fmt.Errorf("products mapper: %w", err)
	}

	userKind := kindOf("users", users)
	userKind.Assign = assignUser

	productKind := kindOf("products", products)
	productKind.Render = func(h record.Handle) map[string]any {
		out := h.JSONSerializable(true)
		if p, ok := h.(*record.Record[Product]); ok && p.Entity().ImageURL != "" {
			out["image_url"] = p.Entity().ImageURL
		}
		return out
	}

	return &Registry{kinds: map[string]Kind{
		userKind.Name:    userKind,
		productKind.Name: productKind,
	}}, nil
}

// Kind returns the kind registered under name.
func (r *Registry) Kind(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns the registered kind names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for n := range r.kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func kindOf[T any](name string, m *record.Mapper[T]) Kind {
	return Kind{
		Name:   name,
		Schema: m.Schema(),
		New: func() (record.Handle, error) {
			r, err := m.New()
			if err != nil {
				return nil, err
			}
			return r, nil
		},
		Load: func(ctx context.Context, id string) (record.Handle, error) {
			r, err := m.FromID(ctx, id)
			if err != nil || r == nil {
				return nil, err
			}
			return r, nil
		},
		List: func(ctx context.Context, fields ...string) ([]record.Handle, error) {
			var opts []record.ListOption
			if len(fields) > 0 {
				opts = append(opts, record.Columns(fields...))
			}
			rs, err := m.GetAll(ctx, opts...)
			if err != nil {
				return nil, err
			}
			return record.Handles(rs), nil
		},
		Assign: func(h record.Handle, field string, value any) error {
			return h.Assign(field, value)
		},
		Render: func(h record.Handle) map[string]any {
			return h.JSONSerializable(true)
		},
	}
}

// assignUser routes password input through SetPassword so the plain text is
// never stored, and refuses direct salt writes.
func assignUser(h record.Handle, field string, value any) error {
	switch field {
	case types.FieldPassword:
		u, ok := h.(*record.Record[User])
		if !ok {
			return fmt.Errorf("assign password: unexpected record %T", h)
		}
		plain, ok := value.(string)
		if !ok {
			return types.NewValidationError("password", "must be a string")
		}
		return u.Entity().SetPassword(plain)
	case types.FieldSalt:
		return types.NewValidationError("salt", "derived from password")
	default:
		return h.Assign(field, value)
	}
}
