package types

import "context"

// Querier is the row-level capability surface the record mapper needs from
// a storage engine.
type Querier interface {
	// FetchWhere returns every row of table matching the predicate, in the
	// engine's order. No match is an empty slice, not an error.
	FetchWhere(ctx context.Context, table string, where Predicate) ([]Row, error)

	// Select returns all rows of table restricted to columns. Nil columns
	// selects every column.
	Select(ctx context.Context, table string, columns []string) ([]Row, error)

	// Insert stores a new row and returns the identifier the engine assigned.
	Insert(ctx context.Context, table string, attrs Row) (any, error)

	// Update writes attrs to the rows matching the predicate and returns the
	// number of rows changed.
	Update(ctx context.Context, table string, where Predicate, attrs Row) (int64, error)

	// Delete removes the rows matching the predicate and returns the number
	// of rows removed.
	Delete(ctx context.Context, table string, where Predicate) (int64, error)
}

// Tx is a Querier bound to an open transaction.
type Tx interface {
	Querier
	Commit() error
	Rollback() error
}

// Gateway is a Querier that can open transactions.
type Gateway interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
}
