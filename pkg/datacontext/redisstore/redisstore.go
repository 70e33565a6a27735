// Package redisstore keeps each datacontext collection in a Redis hash of
// id to JSON document, with a sorted set recording insertion order.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

const maxWatchRetries = 5

var errConflict = errors.New("redisstore: concurrent modification")

type Backend struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

func (b *Backend) Collection(name string) datacontext.RawCollection {
	base := fmt.Sprintf("%s:%s", b.prefix, name)
	return &Collection{
		client:   b.client,
		name:     name,
		docsKey:  base + ":docs",
		orderKey: base + ":order",
		seqKey:   base + ":seq",
	}
}

type Collection struct {
	client   redis.UniversalClient
	name     string
	docsKey  string
	orderKey string
	seqKey   string
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) All(ctx context.Context) ([][]byte, error) {
	ids, err := c.client.ZRange(ctx, c.orderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	values, err := c.client.HMGet(ctx, c.docsKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, []byte(s))
		}
	}
	return out, nil
}

// Match filters in process; Redis has no document query to push down to.
func (c *Collection) Match(ctx context.Context, conds []datacontext.Condition) ([][]byte, error) {
	docs, err := c.All(ctx)
	if err != nil || len(conds) == 0 {
		return docs, err
	}
	out := docs[:0]
outer:
	for _, doc := range docs {
		for _, cond := range conds {
			if !cond.Match(doc) {
				continue outer
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *Collection) Get(ctx context.Context, id string) ([]byte, error) {
	result, err := c.client.HGet(ctx, c.docsKey, id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, datacontext.ErrNotFound
		}
		return nil, err
	}
	return []byte(result), nil
}

func (c *Collection) Insert(ctx context.Context, id string, doc []byte) error {
	ok, err := c.client.HSetNX(ctx, c.docsKey, id, doc).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("redisstore: duplicate id %s in %s", id, c.name)
	}
	seq, err := c.client.Incr(ctx, c.seqKey).Result()
	if err != nil {
		return err
	}
	return c.client.ZAdd(ctx, c.orderKey, redis.Z{Score: float64(seq), Member: id}).Err()
}

func (c *Collection) Remove(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	var deleted *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.HDel(ctx, c.docsKey, ids...)
		pipe.ZRem(ctx, c.orderKey, members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(deleted.Val()), nil
}

func (c *Collection) Put(ctx context.Context, id string, doc []byte) error {
	return c.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, c.docsKey, id).Result()
		if err != nil {
			return err
		}
		if !exists {
			return datacontext.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, c.docsKey, id, doc)
			return nil
		})
		return err
	})
}

// Modify reads, updates and writes back the documents under WATCH so a
// concurrent writer forces a retry instead of a lost update.
func (c *Collection) Modify(ctx context.Context, ids []string, update datacontext.Update) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err := c.watch(ctx, func(tx *redis.Tx) error {
		values, err := tx.HMGet(ctx, c.docsKey, ids...).Result()
		if err != nil {
			return err
		}
		changed := make(map[string]any, len(ids))
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			doc, err := update.Apply([]byte(s))
			if err != nil {
				return err
			}
			changed[ids[i]] = doc
		}
		n = len(changed)
		if n == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, c.docsKey, changed)
			return nil
		})
		return err
	})
	return n, err
}

func (c *Collection) watch(ctx context.Context, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxWatchRetries; i++ {
		err := c.client.Watch(ctx, fn, c.docsKey)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return errConflict
}
