package sqldb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

var items = types.Schema{
	Table:      "items",
	PrimaryKey: "id",
	Fields: []types.Field{
		{Name: "id", Column: "item_id"},
		{Name: "label", Column: "label"},
		{Name: "price", Column: "price"},
		{Name: "created", Column: "created_at"},
	},
}

func newMock(t *testing.T, d Dialect) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db, d, items), mock
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"users"`, Quote("users"))
	assert.Equal(t, `"we""ird"`, Quote(`we"ird`))
}

func TestPostgresFetchWhere(t *testing.T) {
	g, mock := newMock(t, Postgres)
	mock.ExpectQuery(`SELECT * FROM "items" WHERE "item_id" = $1 AND "label" = $2 ORDER BY "item_id"`).
		WithArgs("7", "jam").
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "label", "price"}).
			AddRow(int64(7), []byte("jam"), []byte("3.50")))

	rows, err := g.FetchWhere(context.Background(), "items", types.Predicate{"label": "jam", "item_id": "7"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, types.Row{"item_id": int64(7), "label": "jam", "price": "3.50"}, rows[0])
}

func TestSelectColumns(t *testing.T) {
	g, mock := newMock(t, Postgres)
	mock.ExpectQuery(`SELECT "item_id", "label" FROM "items" ORDER BY "item_id"`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "label"}).AddRow(1, "a").AddRow(2, "b"))
	mock.ExpectQuery(`SELECT * FROM "items" ORDER BY "item_id"`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}))

	rows, err := g.Select(context.Background(), "items", []string{"item_id", "label"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = g.Select(context.Background(), "items", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPostgresInsertReturning(t *testing.T) {
	g, mock := newMock(t, Postgres)
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO "items" ("created_at", "label", "price") VALUES ($1, $2, $3) RETURNING "item_id"`).
		WithArgs("2026-01-02T03:04:05Z", "jam", "3.5").
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(int64(42)))

	id, err := g.Insert(context.Background(), "items", types.Row{
		"label":      "jam",
		"price":      decimal.RequireFromString("3.5"),
		"created_at": stamp,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestSQLiteInsertLastInsertID(t *testing.T) {
	g, mock := newMock(t, SQLite)
	mock.ExpectExec(`INSERT INTO "items" ("label") VALUES (?)`).
		WithArgs("jam").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(`INSERT INTO "items" DEFAULT VALUES`).
		WillReturnResult(sqlmock.NewResult(10, 1))

	id, err := g.Insert(context.Background(), "items", types.Row{"label": "jam"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	id, err = g.Insert(context.Background(), "items", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)
}

func TestUpdateNumbersMarkersAfterSet(t *testing.T) {
	g, mock := newMock(t, Postgres)
	mock.ExpectExec(`UPDATE "items" SET "label" = $1, "price" = $2 WHERE "item_id" = $3`).
		WithArgs("jam", "4", "7").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := g.Update(context.Background(), "items", types.Predicate{"item_id": "7"},
		types.Row{"price": decimal.NewFromInt(4), "label": "jam"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = g.Update(context.Background(), "items", types.Predicate{"item_id": "7"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDelete(t *testing.T) {
	g, mock := newMock(t, SQLite)
	mock.ExpectExec(`DELETE FROM "items" WHERE "item_id" = ?`).
		WithArgs("7").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := g.Delete(context.Background(), "items", types.Predicate{"item_id": "7"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnknownTable(t *testing.T) {
	g, _ := newMock(t, Postgres)
	_, err := g.FetchWhere(context.Background(), "ghosts", nil)
	assert.True(t, errors.Is(err, types.ErrTableNotFound))
}

type item struct {
	ID      string
	Label   string
	Price   decimal.Decimal
	Created time.Time
}

func itemMapper(t *testing.T, g *Gateway) *record.Mapper[item] {
	t.Helper()
	m, err := record.New(items, record.Accessors[item]{
		"id":      record.String(func(i *item) *string { return &i.ID }),
		"label":   record.String(func(i *item) *string { return &i.Label }),
		"price":   record.Decimal(func(i *item) *decimal.Decimal { return &i.Price }),
		"created": record.Time(func(i *item) *time.Time { return &i.Created }),
	}, g, record.WithClock[item](func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }))
	require.NoError(t, err)
	return m
}

func TestMapperInsertCommits(t *testing.T) {
	g, mock := newMock(t, Postgres)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "items" ("created_at", "label") VALUES ($1, $2) RETURNING "item_id"`).
		WithArgs("2026-01-02T03:04:05Z", "jam").
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	r, err := itemMapper(t, g).New()
	require.NoError(t, err)
	r.Entity().Label = "jam"

	id, err := r.Insert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "7", r.Entity().ID)
}

func TestMapperUpdateRollsBackOnError(t *testing.T) {
	g, mock := newMock(t, Postgres)
	boom := errors.New("deadlock detected")
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "items" SET "created_at" = $1, "label" = $2 WHERE "item_id" = $3`).
		WithArgs("2026-01-02T03:04:05Z", "jam", "7").
		WillReturnError(boom)
	mock.ExpectRollback()

	r, err := itemMapper(t, g).FromRow(types.Row{"item_id": int64(7), "label": "jam"})
	require.NoError(t, err)

	id, err := r.Update(context.Background())
	assert.Nil(t, id)
	assert.Same(t, boom, err)
}
