package types

import "fmt"

// Reserved logical field names with special handling during projection and
// serialization.
const (
	FieldCreated  = "created"
	FieldModified = "modified"
	FieldPassword = "password"
	FieldSalt     = "salt"
)

// Field maps one logical field name to its storage column.
type Field struct {
	Name      string // Logical name used by callers.
	Column    string // Storage column name used by the gateway.
	Sensitive bool   // Excluded from safe projections and safe serialization.
}

// IsSensitive reports whether the field must be dropped from safe output.
// The password and salt names are always sensitive, whether or not the
// schema flags them.
func (f Field) IsSensitive() bool {
	return f.Sensitive || f.Name == FieldPassword || f.Name == FieldSalt
}

// Schema describes how a record type is stored: the backing table, the
// ordered field-to-column mapping, and which logical field is the primary key.
type Schema struct {
	Table      string
	PrimaryKey string
	Fields     []Field
}

// Validate checks that the schema is well-formed. It returns an error
// wrapping ErrInvalidSchema on failure.
func (s Schema) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("%w: table must not be empty", ErrInvalidSchema)
	}
	if s.PrimaryKey == "" {
		return fmt.Errorf("%w: %s: primary key must not be empty", ErrInvalidSchema, s.Table)
	}
	names := make(map[string]bool, len(s.Fields))
	columns := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" || f.Column == "" {
			return fmt.Errorf("%w: %s: field name and column must not be empty", ErrInvalidSchema, s.Table)
		}
		if names[f.Name] {
			return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidSchema, s.Table, f.Name)
		}
		if columns[f.Column] {
			return fmt.Errorf("%w: %s: duplicate column %q", ErrInvalidSchema, s.Table, f.Column)
		}
		names[f.Name] = true
		columns[f.Column] = true
	}
	if !names[s.PrimaryKey] {
		return fmt.Errorf("%w: %s: primary key %q is not a field", ErrInvalidSchema, s.Table, s.PrimaryKey)
	}
	return nil
}

// Field returns the field with the given logical name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether the schema declares the logical field name.
func (s Schema) Has(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// Column resolves a logical field name to its storage column.
func (s Schema) Column(name string) (string, bool) {
	f, ok := s.Field(name)
	return f.Column, ok
}

// PrimaryColumn returns the storage column of the primary key.
func (s Schema) PrimaryColumn() string {
	col, _ := s.Column(s.PrimaryKey)
	return col
}

// Columns returns every storage column in field order.
func (s Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Column
	}
	return cols
}

// Keys maps each schema's table to its primary-key column. Gateways use it
// to address rows and to place generated identifiers.
func Keys(schemas ...Schema) map[string]string {
	keys := make(map[string]string, len(schemas))
	for _, s := range schemas {
		keys[s.Table] = s.PrimaryColumn()
	}
	return keys
}
