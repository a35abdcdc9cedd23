// Package postgres opens the PostgreSQL storage gateway through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/mesh-intelligence/pantry/internal/sqldb"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

var tableDDL = map[string]string{
	"users": `CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password TEXT,
    salt TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	"products": `CREATE TABLE IF NOT EXISTS products (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    price NUMERIC(14, 2) NOT NULL DEFAULT 0,
    stock BIGINT NOT NULL DEFAULT 0,
    owner_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
}

// Open connects to dsn, checks the connection, and creates the tables of
// the given schemas that it has DDL for.
func Open(ctx context.Context, dsn string, schemas ...types.Schema) (*sqldb.Gateway, error) {
	if dsn == "" {
		return nil, types.ErrPostgresDSNEmpty
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	g, err := Attach(ctx, db, schemas...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

// Attach pings an already opened database, runs the DDL, and wraps it in a
// gateway.
func Attach(ctx context.Context, db *sql.DB, schemas ...types.Schema) (*sqldb.Gateway, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, s := range schemas {
		ddl, ok := tableDDL[s.Table]
		if !ok {
			continue
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("create table %s: %w", s.Table, err)
		}
	}
	return sqldb.New(db, sqldb.Postgres, schemas...), nil
}
