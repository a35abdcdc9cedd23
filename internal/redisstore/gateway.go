// Package redisstore implements types.Gateway on Redis. Each row is a hash
// at <prefix>:<table>:<id>; a sorted set at <prefix>:<table>:ids keeps the
// insertion order, and <prefix>:<table>:seq hands out identifiers.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/pantry/pkg/record"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DefaultPrefix namespaces keys when no prefix is configured.
const DefaultPrefix = "pantry"

// Gateway is a types.Gateway over a go-redis client.
type Gateway struct {
	rdb    redis.UniversalClient
	prefix string
	keys   map[string]string
}

// New wraps rdb. An empty prefix means DefaultPrefix.
func New(rdb redis.UniversalClient, prefix string, schemas ...types.Schema) *Gateway {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Gateway{rdb: rdb, prefix: prefix, keys: types.Keys(schemas...)}
}

// Open connects to addr and checks the connection.
func Open(ctx context.Context, addr, prefix string, schemas ...types.Schema) (*Gateway, error) {
	if addr == "" {
		return nil, types.ErrRedisAddrEmpty
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(rdb, prefix, schemas...), nil
}

// Close closes the client.
func (g *Gateway) Close() error { return g.rdb.Close() }

func (g *Gateway) rowKey(table, id string) string { return g.prefix + ":" + table + ":" + id }
func (g *Gateway) idsKey(table string) string     { return g.prefix + ":" + table + ":ids" }
func (g *Gateway) seqKey(table string) string     { return g.prefix + ":" + table + ":seq" }

func (g *Gateway) key(table string) (string, error) {
	k, ok := g.keys[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrTableNotFound, table)
	}
	return k, nil
}

// load returns the rows of table matching where, in insertion order. A
// predicate on the key alone reads a single hash.
func (g *Gateway) load(ctx context.Context, table string, where types.Predicate) ([]string, []types.Row, error) {
	key, err := g.key(table)
	if err != nil {
		return nil, nil, err
	}

	var ids []string
	if v, ok := where[key]; ok && len(where) == 1 {
		ids = []string{types.StorageText(v)}
	} else {
		ids, err = g.rdb.ZRange(ctx, g.idsKey(table), 0, -1).Result()
		if err != nil {
			return nil, nil, fmt.Errorf("list %s ids: %w", table, err)
		}
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = g.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, g.rowKey(table, id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, fmt.Errorf("load %s: %w", table, err)
	}

	var outIDs []string
	var rows []types.Row
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		row := make(types.Row, len(fields))
		for k, v := range fields {
			row[k] = v
		}
		if !where.Matches(row) {
			continue
		}
		outIDs = append(outIDs, ids[i])
		rows = append(rows, row)
	}
	return outIDs, rows, nil
}

// FetchWhere implements types.Querier.
func (g *Gateway) FetchWhere(ctx context.Context, table string, where types.Predicate) ([]types.Row, error) {
	_, rows, err := g.load(ctx, table, where)
	return rows, err
}

// Select implements types.Querier.
func (g *Gateway) Select(ctx context.Context, table string, columns []string) ([]types.Row, error) {
	_, rows, err := g.load(ctx, table, nil)
	if err != nil {
		return nil, err
	}
	out := make([]types.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Project(columns)
	}
	return out, nil
}

// Insert implements types.Querier.
func (g *Gateway) Insert(ctx context.Context, table string, attrs types.Row) (any, error) {
	return g.write(ctx, func(tx *Tx) (any, error) { return tx.Insert(ctx, table, attrs) })
}

// Update implements types.Querier.
func (g *Gateway) Update(ctx context.Context, table string, where types.Predicate, attrs types.Row) (int64, error) {
	n, err := g.write(ctx, func(tx *Tx) (any, error) { return tx.Update(ctx, table, where, attrs) })
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

// Delete implements types.Querier.
func (g *Gateway) Delete(ctx context.Context, table string, where types.Predicate) (int64, error) {
	n, err := g.write(ctx, func(tx *Tx) (any, error) { return tx.Delete(ctx, table, where) })
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

func (g *Gateway) write(ctx context.Context, fn func(*Tx) (any, error)) (any, error) {
	tx := &Tx{g: g, ctx: ctx}
	v, err := fn(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// Begin starts a transaction. Writes are queued and sent in one MULTI/EXEC
// block on Commit; reads inside the transaction do not see them.
func (g *Gateway) Begin(ctx context.Context) (types.Tx, error) {
	return &Tx{g: g, ctx: ctx}, nil
}

// Tx queues writes for a single MULTI/EXEC.
type Tx struct {
	g     *Gateway
	ctx   context.Context
	queue []func(redis.Pipeliner)
	done  bool
}

func (t *Tx) check() error {
	if t.done {
		return types.ErrTxDone
	}
	return nil
}

// FetchWhere implements types.Querier.
func (t *Tx) FetchWhere(ctx context.Context, table string, where types.Predicate) ([]types.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.g.FetchWhere(ctx, table, where)
}

// Select implements types.Querier.
func (t *Tx) Select(ctx context.Context, table string, columns []string) ([]types.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.g.Select(ctx, table, columns)
}

// Insert implements types.Querier. The sequence is advanced immediately,
// so a rolled back insert leaves a gap.
func (t *Tx) Insert(ctx context.Context, table string, attrs types.Row) (any, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	key, err := t.g.key(table)
	if err != nil {
		return nil, err
	}
	seq, err := t.g.rdb.Incr(ctx, t.g.seqKey(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("next %s id: %w", table, err)
	}

	id := strconv.FormatInt(seq, 10)
	if v, ok := attrs[key]; ok && record.Truthy(v) {
		id = types.StorageText(v)
	}
	rowKey := t.g.rowKey(table, id)
	exists, err := t.g.rdb.Exists(ctx, rowKey).Result()
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", rowKey, err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("insert %s: duplicate key %s", table, id)
	}

	fields := hashFields(attrs)
	fields[key] = id
	t.queue = append(t.queue, func(p redis.Pipeliner) {
		p.HSet(t.ctx, rowKey, fields)
		p.ZAdd(t.ctx, t.g.idsKey(table), redis.Z{Score: float64(seq), Member: id})
	})
	return id, nil
}

// Update implements types.Querier. The count reflects the rows matching at
// call time.
func (t *Tx) Update(ctx context.Context, table string, where types.Predicate, attrs types.Row) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	ids, _, err := t.g.load(ctx, table, where)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 || len(attrs) == 0 {
		return 0, nil
	}
	key, _ := t.g.key(table)
	fields := hashFields(attrs)
	delete(fields, key)
	t.queue = append(t.queue, func(p redis.Pipeliner) {
		for _, id := range ids {
			p.HSet(t.ctx, t.g.rowKey(table, id), fields)
		}
	})
	return int64(len(ids)), nil
}

// Delete implements types.Querier.
func (t *Tx) Delete(ctx context.Context, table string, where types.Predicate) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	ids, _, err := t.g.load(ctx, table, where)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	t.queue = append(t.queue, func(p redis.Pipeliner) {
		for _, id := range ids {
			p.Del(t.ctx, t.g.rowKey(table, id))
			p.ZRem(t.ctx, t.g.idsKey(table), id)
		}
	})
	return int64(len(ids)), nil
}

// Commit sends the queued writes in one MULTI/EXEC block.
func (t *Tx) Commit() error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	if len(t.queue) == 0 {
		return nil
	}
	_, err := t.g.rdb.TxPipelined(t.ctx, func(p redis.Pipeliner) error {
		for _, fn := range t.queue {
			fn(p)
		}
		return nil
	})
	t.queue = nil
	return err
}

// Rollback drops the queued writes.
func (t *Tx) Rollback() error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	t.queue = nil
	return nil
}

func hashFields(attrs types.Row) map[string]any {
	out := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		out[k] = types.StorageText(v)
	}
	return out
}
