// Package memory is an in-process datacontext backend. It keeps documents in
// insertion order and is used for tests and for STORAGE_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

type Backend struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

func New() *Backend {
	return &Backend{collections: make(map[string]*Collection)}
}

func (b *Backend) Collection(name string) datacontext.RawCollection {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[name]
	if !ok {
		c = &Collection{name: name}
		b.collections[name] = c
	}
	return c
}

type document struct {
	id  string
	raw []byte
}

type Collection struct {
	name string
	mu   sync.RWMutex
	docs []document
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) All(ctx context.Context) ([][]byte, error) {
	return c.Match(ctx, nil)
}

func (c *Collection) Match(_ context.Context, conds []datacontext.Condition) ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([][]byte, 0, len(c.docs))
outer:
	for _, d := range c.docs {
		for _, cond := range conds {
			if !cond.Match(d.raw) {
				continue outer
			}
		}
		out = append(out, slices.Clone(d.raw))
	}
	return out, nil
}

func (c *Collection) Get(_ context.Context, id string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return slices.Clone(c.docs[i].raw), nil
	}
	return nil, datacontext.ErrNotFound
}

func (c *Collection) Insert(_ context.Context, id string, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index(id) >= 0 {
		return fmt.Errorf("memory: duplicate id %s in %s", id, c.name)
	}
	c.docs = append(c.docs, document{id: id, raw: slices.Clone(doc)})
	return nil
}

func (c *Collection) Remove(_ context.Context, ids ...string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := len(c.docs)
	c.docs = slices.DeleteFunc(c.docs, func(d document) bool {
		return slices.Contains(ids, d.id)
	})
	return before - len(c.docs), nil
}

func (c *Collection) Put(_ context.Context, id string, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return datacontext.ErrNotFound
	}
	c.docs[i].raw = slices.Clone(doc)
	return nil
}

// Modify applies the update to every id or to none of them.
func (c *Collection) Modify(_ context.Context, ids []string, update datacontext.Update) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	type change struct {
		i   int
		raw []byte
	}
	var changes []change
	for _, id := range ids {
		i := c.index(id)
		if i < 0 {
			continue
		}
		raw, err := update.Apply(slices.Clone(c.docs[i].raw))
		if err != nil {
			return 0, err
		}
		changes = append(changes, change{i: i, raw: raw})
	}
	for _, ch := range changes {
		c.docs[ch.i].raw = ch.raw
	}
	return len(changes), nil
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *Collection) index(id string) int {
	return slices.IndexFunc(c.docs, func(d document) bool {
		return d.id == id
	})
}
