// Package entity declares the record types pantry stores: users and
// products. Each type carries its schema, its accessor table, and the
// validate/augment hooks the mapper runs.
package entity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Argon2id parameters for stored password hashes.
const (
	passwordTime    uint32 = 1
	passwordMemory  uint32 = 64 * 1024
	passwordThreads uint8  = 2
	passwordKeyLen  uint32 = 32
	saltLen                = 16
)

// User is an account holder.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string // hex argon2id hash
	Salt     string // hex salt
	Created  time.Time
	Modified time.Time
}

var UserSchema = types.Schema{
	Table:      "users",
	PrimaryKey: "id",
	Fields: []types.Field{
		{Name: "id", Column: "id"},
		{Name: "name", Column: "name"},
		{Name: "email", Column: "email"},
		{Name: "password", Column: "password"},
		{Name: "salt", Column: "salt"},
		{Name: types.FieldCreated, Column: "created_at"},
		{Name: types.FieldModified, Column: "updated_at"},
	},
}

var userAccessors = record.Accessors[User]{
	"id":                record.String(func(u *User) *string { return &u.ID }),
	"name":              record.String(func(u *User) *string { return &u.Name }),
	"email":             record.String(func(u *User) *string { return &u.Email }),
	"password":          record.String(func(u *User) *string { return &u.Password }),
	"salt":              record.String(func(u *User) *string { return &u.Salt }),
	types.FieldCreated:  record.Time(func(u *User) *time.Time { return &u.Created }),
	types.FieldModified: record.Time(func(u *User) *time.Time { return &u.Modified }),
}

// NewUsers returns the mapper for users.
func NewUsers(gw types.Gateway, opts ...record.Option[User]) (*record.Mapper[User], error) {
	opts = append([]record.Option[User]{record.WithValidator(ValidateUser)}, opts...)
	return record.New(UserSchema, userAccessors, gw, opts...)
}

// ValidateUser requires a name and a parseable email address.
func ValidateUser(u *User) error {
	if strings.TrimSpace(u.Name) == "" {
		return types.NewValidationError("name", "required")
	}
	if u.Email == "" {
		return types.NewValidationError("email", "required")
	}
	addr, err := mail.ParseAddress(u.Email)
	if err != nil || addr.Address != u.Email {
		return types.NewValidationError("email", "not a valid address")
	}
	return nil
}

// SetPassword replaces the stored hash with an argon2id hash of plain under
// a fresh random salt.
func (u *User) SetPassword(plain string) error {
	if plain == "" {
		return types.NewValidationError("password", "required")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	u.Salt = hex.EncodeToString(salt)
	u.Password = hex.EncodeToString(hashPassword(plain, salt))
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	salt, err := hex.DecodeString(u.Salt)
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := hex.DecodeString(u.Password)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(hashPassword(plain, salt), want) == 1
}

func hashPassword(plain string, salt []byte) []byte {
	return argon2.IDKey([]byte(plain), salt, passwordTime, passwordMemory, passwordThreads, passwordKeyLen)
}
