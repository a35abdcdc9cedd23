package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func TestInsertNewRecord(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	m := newAuthors(t, gw)
	r, err := m.New()
	require.NoError(t, err)
	r.Entity().Name = "Ada"

	id, err := r.Insert(ctx)
	require.NoError(t, err)

	assert.Equal(t, "7", id)
	assert.Equal(t, "7", r.Entity().ID)
	assert.Equal(t, fixedNow, r.Entity().Created)
	assert.Equal(t, []string{"begin", "insert", "commit"}, gw.ops())

	ins, ok := gw.lastCall("insert")
	require.True(t, ok)
	assert.Equal(t, "authors", ins.table)
	assert.Equal(t, types.Row{"name": "Ada", "created_at": fixedStamp}, ins.attrs)
	require.Len(t, gw.rows["authors"], 1)
}

func TestUpdateKeepsCreated(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.seed("authors", types.Row{"id": "7", "name": "Ada", "created_at": "2025-06-01T00:00:00Z"})
	m := newAuthors(t, gw)
	r, err := m.FromID(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, r)
	r.Entity().Name = "Ada Lovelace"

	id, err := r.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	up, ok := gw.lastCall("update")
	require.True(t, ok)
	assert.Equal(t, types.Predicate{"id": "7"}, up.where)
	assert.Equal(t, types.Row{"name": "Ada Lovelace", "created_at": "2025-06-01T00:00:00Z"}, up.attrs)
	assert.Equal(t, "Ada Lovelace", gw.rows["authors"][0]["name"])
	assert.Equal(t, 1, gw.committed)
}

func TestUpdateStampsModified(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.key = "account_id"
	gw.seed("accounts", accountRow())
	m := newAccounts(t, gw)
	r, err := m.FromID(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, r)

	_, err = r.Update(ctx)
	require.NoError(t, err)

	up, _ := gw.lastCall("update")
	assert.Equal(t, fixedStamp, up.attrs["updated_at"])
	assert.Equal(t, "2025-12-01T10:00:00Z", up.attrs["created_at"])
	assert.Equal(t, fixedNow, r.Entity().Modified)
	assert.Equal(t, time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC), r.Entity().Created)
}

func TestInsertWithIdentifierIsNoop(t *testing.T) {
	gw := newFakeGateway()
	m := newAuthors(t, gw)
	r, err := m.FromRow(types.Row{"id": "3", "name": "Grace"})
	require.NoError(t, err)

	id, err := r.Insert(context.Background())
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Empty(t, gw.calls)
}

func TestUpdateWithoutIdentifierIsNoop(t *testing.T) {
	gw := newFakeGateway()
	m := newAuthors(t, gw)
	r, err := m.FromRow(types.Row{"name": "Grace"})
	require.NoError(t, err)

	id, err := r.Update(context.Background())
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Empty(t, gw.calls)
}

func TestUpdateMissingRowReturnsNil(t *testing.T) {
	gw := newFakeGateway()
	m := newAuthors(t, gw)
	r, err := m.FromRow(types.Row{"id": "99", "name": "Nobody"})
	require.NoError(t, err)

	id, err := r.Update(context.Background())
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Equal(t, []string{"begin", "update", "commit"}, gw.ops())
}

func TestWriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")

	t.Run("insert", func(t *testing.T) {
		gw := newFakeGateway()
		gw.insertErr = boom
		m := newAuthors(t, gw)
		r, err := m.New()
		require.NoError(t, err)
		r.Entity().Name = "Ada"

		id, err := r.Insert(ctx)
		assert.Nil(t, id)
		assert.Same(t, boom, err)
		assert.Equal(t, []string{"begin", "insert", "rollback"}, gw.ops())
		assert.Empty(t, gw.rows["authors"])
		assert.Empty(t, r.Entity().ID)
		assert.True(t, r.Entity().Created.IsZero())
	})

	t.Run("update", func(t *testing.T) {
		gw := newFakeGateway()
		gw.seed("authors", types.Row{"id": "7", "name": "Ada"})
		gw.updateErr = boom
		m := newAuthors(t, gw)
		r, err := m.FromRow(types.Row{"id": "7", "name": "Changed"})
		require.NoError(t, err)

		id, err := r.Update(ctx)
		assert.Nil(t, id)
		assert.Same(t, boom, err)
		assert.Equal(t, 1, gw.rolledBack)
		assert.Equal(t, 0, gw.committed)
		assert.Equal(t, "Ada", gw.rows["authors"][0]["name"])
	})

	t.Run("begin", func(t *testing.T) {
		gw := newFakeGateway()
		gw.beginErr = boom
		m := newAuthors(t, gw)
		r, err := m.New()
		require.NoError(t, err)
		r.Entity().Name = "Ada"

		_, err = r.Insert(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom))
	})
}

func TestValidationAbortsWrites(t *testing.T) {
	ctx := context.Background()
	verr := types.NewValidationError("name", "required")
	validate := func(a *author) error {
		if a.Name == "" {
			return verr
		}
		return nil
	}
	gw := newFakeGateway()
	m := newAuthors(t, gw, WithValidator(validate))

	fresh, err := m.New()
	require.NoError(t, err)
	_, err = fresh.Insert(ctx)
	assert.Same(t, verr, err)
	assert.True(t, errors.Is(err, types.ErrValidation))

	stored, err := m.FromRow(types.Row{"id": "7"})
	require.NoError(t, err)
	_, err = stored.Update(ctx)
	assert.Same(t, verr, err)

	assert.Empty(t, gw.calls)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.seed("authors", types.Row{"id": "7", "name": "Ada"}, types.Row{"id": "8", "name": "Grace"})
	m := newAuthors(t, gw)
	r, err := m.FromID(ctx, "7")
	require.NoError(t, err)

	n, err := r.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, r.Deleted())
	require.Len(t, gw.rows["authors"], 1)
	assert.Equal(t, "8", gw.rows["authors"][0]["id"])

	del, _ := gw.lastCall("delete")
	assert.Equal(t, types.Predicate{"id": "7"}, del.where)

	_, err = r.Update(ctx)
	assert.True(t, errors.Is(err, types.ErrRecordDeleted))
	_, err = r.Insert(ctx)
	assert.True(t, errors.Is(err, types.ErrRecordDeleted))
}

func TestDeleteUsesCurrentIdentifier(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	m := newAuthors(t, gw)
	r, err := m.New()
	require.NoError(t, err)
	r.Entity().Name = "Ada"
	_, err = r.Insert(ctx)
	require.NoError(t, err)

	n, err := r.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	del, _ := gw.lastCall("delete")
	assert.Equal(t, types.Predicate{"id": "7"}, del.where)
}

func TestDeleteWithoutIdentifier(t *testing.T) {
	gw := newFakeGateway()
	m := newAuthors(t, gw)
	r, err := m.New()
	require.NoError(t, err)

	n, err := r.Delete(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, r.Deleted())
	assert.Empty(t, gw.calls)
}

// counter has an integer key, so text identifiers cannot be assigned to it.
type counter struct {
	ID   int64
	Name string
}

var counterSchema = types.Schema{
	Table:      "counters",
	PrimaryKey: "id",
	Fields: []types.Field{
		{Name: "id", Column: "id"},
		{Name: "name", Column: "name"},
	},
}

var counterAccessors = Accessors[counter]{
	"id":   Int64(func(c *counter) *int64 { return &c.ID }),
	"name": String(func(c *counter) *string { return &c.Name }),
}

func TestInsertRollsBackUnassignableKey(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.insertID = "018f-uuid"
	m, err := New(counterSchema, counterAccessors, gw)
	require.NoError(t, err)
	r, err := m.New()
	require.NoError(t, err)
	r.Entity().Name = "hits"

	id, err := r.Insert(ctx)
	assert.Nil(t, id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidData))
	assert.Equal(t, []string{"begin", "insert", "rollback"}, gw.ops())
	assert.Zero(t, gw.committed)
	assert.Empty(t, gw.rows["counters"])
	assert.Zero(t, r.Entity().ID)
	assert.Nil(t, r.ID())
}

func TestInsertCommitFailureClearsKey(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	gw := newFakeGateway()
	gw.commitErr = boom
	m := newAuthors(t, gw)
	r, err := m.New()
	require.NoError(t, err)
	r.Entity().Name = "Ada"

	_, err = r.Insert(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, r.Entity().ID)
	assert.Empty(t, gw.rows["authors"])

	gw.commitErr = nil
	id, err := r.Insert(ctx)
	require.NoError(t, err)
	assert.Equal(t, "8", id)
	assert.Len(t, gw.rows["authors"], 1)
}

func TestInsertRerunsAugmenter(t *testing.T) {
	var seen []types.Row
	augment := func(a *account, row types.Row) error {
		seen = append(seen, row)
		a.Badge = "badge-" + a.ID
		return nil
	}
	gw := newFakeGateway()
	m := newAccounts(t, gw, WithAugmenter(augment))
	r, err := m.New()
	require.NoError(t, err)
	assert.Equal(t, "badge-", r.Entity().Badge)
	r.Entity().Email = "ada@example.com"

	_, err = r.Insert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "badge-7", r.Entity().Badge)
	require.Len(t, seen, 2)
	assert.Equal(t, "7", seen[1]["account_id"])
	assert.Equal(t, "ada@example.com", seen[1]["email"])
}

func TestValidationPrecedesDeletedCheck(t *testing.T) {
	ctx := context.Background()
	verr := types.NewValidationError("name", "required")
	gw := newFakeGateway()
	gw.seed("authors", types.Row{"id": "7", "name": "Ada"})
	m := newAuthors(t, gw, WithValidator(func(a *author) error {
		if a.Name == "" {
			return verr
		}
		return nil
	}))
	r, err := m.FromID(ctx, "7")
	require.NoError(t, err)
	_, err = r.Delete(ctx)
	require.NoError(t, err)

	r.Entity().Name = ""
	_, err = r.Update(ctx)
	assert.Same(t, verr, err)
	_, err = r.Insert(ctx)
	assert.Same(t, verr, err)

	r.Entity().Name = "Ada"
	_, err = r.Update(ctx)
	assert.True(t, errors.Is(err, types.ErrRecordDeleted))
}
