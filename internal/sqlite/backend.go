// Package sqlite opens the SQLite storage gateway. The database lives in a
// single file under the data directory.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pantry/internal/sqldb"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DBFile is the database file name inside the data directory.
const DBFile = "pantry.db"

const pragmas = "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// Open creates dataDir if needed, opens <dataDir>/pantry.db, and creates
// the tables of the given schemas that it has DDL for.
func Open(ctx context.Context, dataDir string, schemas ...types.Schema) (*sqldb.Gateway, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}

	db, err := sql.Open("sqlite", "file:"+filepath.Join(dataDir, DBFile)+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := migrate(ctx, db, schemas); err != nil {
		db.Close()
		return nil, err
	}
	return sqldb.New(db, sqldb.SQLite, schemas...), nil
}

func migrate(ctx context.Context, db *sql.DB, schemas []types.Schema) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, s := range schemas {
		ddl, ok := tableDDL[s.Table]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", s.Table, err)
		}
		for _, idx := range indexDDL[s.Table] {
			if _, err := tx.ExecContext(ctx, idx); err != nil {
				return fmt.Errorf("create index on %s: %w", s.Table, err)
			}
		}
	}
	return tx.Commit()
}
