// Package record implements the record mapper: a generic base layer that
// gives a schema-described entity type uniform construction, validation,
// persistence, retrieval, and serialization over a storage gateway.
//
// A concrete entity is declared with a types.Schema (logical field name to
// storage column), an Accessors table (field name to getter/setter pair),
// and optional validate and augment hooks:
//
//	users, err := record.New(userSchema, record.Accessors[User]{
//	    "id":   record.String(func(u *User) *string { return &u.ID }),
//	    "name": record.String(func(u *User) *string { return &u.Name }),
//	}, gateway, record.WithValidator(validateUser))
//
//	u, _ := users.New()
//	u.Entity().Name = "Ada"
//	id, err := u.Insert(ctx)
//
// Absent results (no matching row, nothing to write) are reported as nil
// values with a nil error. Errors are reserved for rejected or failed
// operations.
package record
