// Package sqldb implements types.Gateway over database/sql. Dialects
// cover the differences between SQLite and PostgreSQL.
package sqldb

import (
	"strconv"
	"strings"
)

// Dialect describes how statements are spelled for one engine.
type Dialect struct {
	Name string
	// Placeholder returns the bind marker for the n-th argument, from 1.
	Placeholder func(n int) string
	// Returning reports whether INSERT ... RETURNING yields the new key.
	// Without it the gateway relies on LastInsertId.
	Returning bool
}

// SQLite uses ? markers and LastInsertId.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
}

// Postgres uses $n markers and RETURNING.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	Returning:   true,
}

// Quote returns name as a double-quoted identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
