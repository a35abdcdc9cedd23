package record

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

const fixedStamp = "2026-01-02T03:04:05Z"

// author is the minimal entity used by the insert/update scenarios.
type author struct {
	ID      string
	Name    string
	Created time.Time
}

var authorSchema = types.Schema{
	Table:      "authors",
	PrimaryKey: "id",
	Fields: []types.Field{
		{Name: "id", Column: "id"},
		{Name: "name", Column: "name"},
		{Name: "created", Column: "created_at"},
	},
}

var authorAccessors = Accessors[author]{
	"id":      String(func(a *author) *string { return &a.ID }),
	"name":    String(func(a *author) *string { return &a.Name }),
	"created": Time(func(a *author) *time.Time { return &a.Created }),
}

func newAuthors(t *testing.T, gw types.Gateway, opts ...Option[author]) *Mapper[author] {
	t.Helper()
	opts = append([]Option[author]{WithClock[author](func() time.Time { return fixedNow })}, opts...)
	m, err := New(authorSchema, authorAccessors, gw, opts...)
	require.NoError(t, err)
	return m
}

// account exercises every accessor kind plus the sensitive fields.
type account struct {
	ID       string
	Email    string
	Password string
	Salt     string
	Token    string
	Age      int64
	Score    float64
	Active   bool
	Balance  decimal.Decimal
	Created  time.Time
	Modified time.Time
	Badge    string // filled by the augment hook
}

var accountSchema = types.Schema{
	Table:      "accounts",
	PrimaryKey: "id",
	Fields: []types.Field{
		{Name: "id", Column: "account_id"},
		{Name: "email", Column: "email"},
		{Name: "password", Column: "pw_hash"},
		{Name: "salt", Column: "pw_salt"},
		{Name: "token", Column: "api_token", Sensitive: true},
		{Name: "age", Column: "age"},
		{Name: "score", Column: "score"},
		{Name: "active", Column: "active"},
		{Name: "balance", Column: "balance"},
		{Name: "created", Column: "created_at"},
		{Name: "modified", Column: "updated_at"},
	},
}

var accountAccessors = Accessors[account]{
	"id":       String(func(a *account) *string { return &a.ID }),
	"email":    String(func(a *account) *string { return &a.Email }),
	"password": String(func(a *account) *string { return &a.Password }),
	"salt":     String(func(a *account) *string { return &a.Salt }),
	"token":    String(func(a *account) *string { return &a.Token }),
	"age":      Int64(func(a *account) *int64 { return &a.Age }),
	"score":    Float64(func(a *account) *float64 { return &a.Score }),
	"active":   Bool(func(a *account) *bool { return &a.Active }),
	"balance":  Decimal(func(a *account) *decimal.Decimal { return &a.Balance }),
	"created":  Time(func(a *account) *time.Time { return &a.Created }),
	"modified": Time(func(a *account) *time.Time { return &a.Modified }),
}

func newAccounts(t *testing.T, gw types.Gateway, opts ...Option[account]) *Mapper[account] {
	t.Helper()
	gwKey(gw, "account_id")
	opts = append([]Option[account]{WithClock[account](func() time.Time { return fixedNow })}, opts...)
	m, err := New(accountSchema, accountAccessors, gw, opts...)
	require.NoError(t, err)
	return m
}

func gwKey(gw types.Gateway, key string) {
	if f, ok := gw.(*fakeGateway); ok {
		f.key = key
	}
}

func accountRow() types.Row {
	return types.Row{
		"account_id": "acc-1",
		"email":      "ada@example.com",
		"pw_hash":    "hash",
		"pw_salt":    "salt",
		"api_token":  "tok",
		"age":        int64(36),
		"score":      "9.5",
		"active":     int64(1),
		"balance":    "120.50",
		"created_at": "2025-12-01T10:00:00Z",
		"updated_at": []byte("2025-12-02T10:00:00Z"),
		"unmapped":   "ignored",
	}
}
