package datacontext

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/features"
)

type entry[T Entity] struct {
	id    string
	raw   []byte
	value T
}

// CachedContext serves reads from an in-memory snapshot of the collection
// when the USE_MEMORY_DATA_CACHE flag is on at construction. Otherwise it
// behaves exactly like Context.
//
// The snapshot is loaded on first read. Writes hold the lock across the
// gateway call and the snapshot patch, so the snapshot never reflects a write
// that failed. Events are published after the lock is released.
type CachedContext[T Entity] struct {
	base    *Context[T]
	enabled bool
	less    func(a, b T) bool
	log     *logrus.Entry

	mu      sync.RWMutex
	loaded  bool
	entries []entry[T]
}

type CacheOption[T Entity] func(*CachedContext[T])

// WithOrder keeps the snapshot stably sorted by less.
func WithOrder[T Entity](less func(a, b T) bool) CacheOption[T] {
	return func(c *CachedContext[T]) {
		c.less = less
	}
}

func WithLogger[T Entity](log *logrus.Entry) CacheOption[T] {
	return func(c *CachedContext[T]) {
		c.log = log
	}
}

// OrderBy builds an ascending comparison on key.
func OrderBy[T Entity, K cmp.Ordered](key func(T) K) func(a, b T) bool {
	return func(a, b T) bool {
		return key(a) < key(b)
	}
}

func NewCachedContext[T Entity](
	name string,
	collection Collection[T],
	bus eventbus.EventBus,
	flags features.Provider,
	opts ...CacheOption[T],
) *CachedContext[T] {
	c := &CachedContext[T]{
		base:    NewContext(name, collection, bus),
		enabled: flags != nil && flags.IsEnabled(features.UseMemoryDataCache),
		log:     logrus.WithField("component", "datacontext").WithField("context", name),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedContext[T]) Name() string {
	return c.base.Name()
}

func (c *CachedContext[T]) CacheEnabled() bool {
	return c.enabled
}

func (c *CachedContext[T]) Get(ctx context.Context) ([]T, error) {
	if !c.enabled {
		return c.base.Get(ctx)
	}
	entries, err := c.view(ctx)
	if err != nil {
		return nil, err
	}
	return decodeEntries(entries)
}

func (c *CachedContext[T]) Find(ctx context.Context, filter Filter[T]) ([]T, error) {
	if !c.enabled {
		return c.base.Find(ctx, filter)
	}
	entries, err := c.view(ctx)
	if err != nil {
		return nil, err
	}
	return decodeEntries(matching(entries, filter))
}

func (c *CachedContext[T]) GetSingle(ctx context.Context, id string) (T, error) {
	if !c.enabled {
		return c.base.GetSingle(ctx, id)
	}
	return c.FindSingle(ctx, ByID[T](id))
}

func (c *CachedContext[T]) FindSingle(ctx context.Context, filter Filter[T]) (T, error) {
	if !c.enabled {
		return c.base.FindSingle(ctx, filter)
	}
	var zero T
	entries, err := c.view(ctx)
	if err != nil {
		return zero, err
	}
	for _, e := range entries {
		if filter.MatchConditions(e.raw) && filter.MatchPredicates(e.value) {
			return Decode[T](e.raw)
		}
	}
	return zero, ErrNotFound
}

// Add persists and then reloads the whole snapshot, since the stored form
// may differ from what was handed in.
func (c *CachedContext[T]) Add(ctx context.Context, item T) error {
	if !c.enabled {
		return c.base.Add(ctx, item)
	}
	if isNil(item) {
		return ErrNilItem
	}
	ctx, span := c.base.span(ctx, "Add")
	defer span.End()
	if item.GetID() == "" {
		item.SetID(NewObjectID())
	}

	c.mu.Lock()
	if err := c.base.collection.Add(ctx, item); err != nil {
		c.mu.Unlock()
		return fail(span, err)
	}
	c.reloadAfterWrite(ctx, "add")
	c.mu.Unlock()

	c.base.emitAdd("Add", item)
	return nil
}

func (c *CachedContext[T]) Delete(ctx context.Context, item T) error {
	if isNil(item) {
		return ErrNilItem
	}
	return c.DeleteByID(ctx, item.GetID())
}

func (c *CachedContext[T]) DeleteByID(ctx context.Context, id string) error {
	if !c.enabled {
		return c.base.DeleteByID(ctx, id)
	}
	ctx, span := c.base.span(ctx, "Delete")
	defer span.End()

	c.mu.Lock()
	if err := c.base.collection.Delete(ctx, id); err != nil {
		c.mu.Unlock()
		return fail(span, err)
	}
	if i := c.indexLocked(id); i >= 0 {
		c.entries = slices.Delete(c.entries, i, i+1)
	}
	c.mu.Unlock()

	c.base.emit(EventDelete, "Delete", id)
	return nil
}

// DeleteMany resolves ids from the snapshot, deletes through the gateway and
// reloads.
func (c *CachedContext[T]) DeleteMany(ctx context.Context, filter Filter[T]) error {
	if !c.enabled {
		return c.base.DeleteMany(ctx, filter)
	}
	ctx, span := c.base.span(ctx, "DeleteMany")
	defer span.End()

	c.mu.Lock()
	ids, err := c.matchIDsLocked(ctx, filter)
	if err != nil || len(ids) == 0 {
		c.mu.Unlock()
		if err != nil {
			return fail(span, err)
		}
		return nil
	}
	if err := c.base.collection.DeleteMany(ctx, filter); err != nil {
		c.mu.Unlock()
		return fail(span, err)
	}
	c.reloadAfterWrite(ctx, "deleteMany")
	c.mu.Unlock()

	for _, id := range ids {
		c.base.emit(EventDelete, "DeleteMany", id)
	}
	return nil
}

// Replace overwrites the cached entry in place, moving it when its sort key
// changed.
func (c *CachedContext[T]) Replace(ctx context.Context, item T) error {
	if !c.enabled {
		return c.base.Replace(ctx, item)
	}
	if isNil(item) {
		return ErrNilItem
	}
	ctx, span := c.base.span(ctx, "Replace")
	defer span.End()
	id := item.GetID()

	c.mu.Lock()
	if err := c.base.collection.Replace(ctx, id, item); err != nil {
		c.mu.Unlock()
		return fail(span, err)
	}
	if c.loaded {
		if e, err := newEntry(item); err != nil {
			c.invalidateLocked(err)
		} else {
			c.upsertLocked(e)
		}
	}
	c.mu.Unlock()

	c.base.emit(EventUpdate, "Replace", id)
	return nil
}

func (c *CachedContext[T]) UpdateField(ctx context.Context, id, path string, value any) error {
	return c.Update(ctx, id, Set(path, value))
}

// Update refetches only the updated document and repositions it.
func (c *CachedContext[T]) Update(ctx context.Context, id string, update Update) error {
	if !c.enabled {
		return c.base.Update(ctx, id, update)
	}
	ctx, span := c.base.span(ctx, "Update")
	defer span.End()

	c.mu.Lock()
	if err := c.base.collection.Update(ctx, id, update); err != nil {
		c.mu.Unlock()
		return fail(span, err)
	}
	if c.loaded {
		c.refetchLocked(ctx, id)
	}
	c.mu.Unlock()

	c.base.emit(EventUpdate, "Update", id)
	return nil
}

// UpdateOne resolves the first match from the snapshot. No match is a no-op.
func (c *CachedContext[T]) UpdateOne(ctx context.Context, filter Filter[T], update Update) error {
	if !c.enabled {
		return c.base.UpdateOne(ctx, filter, update)
	}
	ctx, span := c.base.span(ctx, "UpdateOne")
	defer span.End()

	c.mu.Lock()
	ids, err := c.matchIDsLocked(ctx, filter)
	if err != nil || len(ids) == 0 {
		c.mu.Unlock()
		if err != nil {
			return fail(span, err)
		}
		return nil
	}
	id := ids[0]
	if err := c.base.collection.UpdateOne(ctx, ByID[T](id), update); err != nil {
		c.mu.Unlock()
		return fail(span, err)
	}
	c.reloadAfterWrite(ctx, "updateOne")
	c.mu.Unlock()

	c.base.emit(EventUpdate, "Update", id)
	return nil
}

func (c *CachedContext[T]) UpdateMany(ctx context.Context, filter Filter[T], update Update) error {
	if !c.enabled {
		return c.base.UpdateMany(ctx, filter, update)
	}
	ctx, span := c.base.span(ctx, "UpdateMany")
	defer span.End()

	c.mu.Lock()
	ids, err := c.matchIDsLocked(ctx, filter)
	if err != nil || len(ids) == 0 {
		c.mu.Unlock()
		if err != nil {
			return fail(span, err)
		}
		return nil
	}
	if err := c.base.collection.UpdateMany(ctx, filter, update); err != nil {
		c.mu.Unlock()
		return fail(span, err)
	}
	c.reloadAfterWrite(ctx, "updateMany")
	c.mu.Unlock()

	for _, id := range ids {
		c.base.emit(EventUpdate, "UpdateMany", id)
	}
	return nil
}

// Refresh reloads the snapshot from the gateway.
func (c *CachedContext[T]) Refresh(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx, "refresh")
}

// view returns a copy of the snapshot slice, loading it on first use.
func (c *CachedContext[T]) view(ctx context.Context) ([]entry[T], error) {
	c.mu.RLock()
	if c.loaded {
		out := slices.Clone(c.entries)
		c.mu.RUnlock()
		recordLookup(c.base.name, true)
		return out, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	recordLookup(c.base.name, c.loaded)
	if !c.loaded {
		if err := c.reloadLocked(ctx, "warmup"); err != nil {
			return nil, err
		}
	}
	return slices.Clone(c.entries), nil
}

func (c *CachedContext[T]) reloadLocked(ctx context.Context, reason string) error {
	items, err := c.base.collection.Get(ctx)
	if err != nil {
		return err
	}
	entries := make([]entry[T], 0, len(items))
	for _, item := range items {
		raw, err := Encode(item)
		if err != nil {
			return err
		}
		entries = append(entries, entry[T]{id: item.GetID(), raw: raw, value: item})
	}
	if c.less != nil {
		sort.SliceStable(entries, func(i, j int) bool {
			return c.less(entries[i].value, entries[j].value)
		})
	}
	c.entries = entries
	c.loaded = true
	recordReload(c.base.name, reason)
	return nil
}

// reloadAfterWrite runs after a successful gateway write. A failed reload
// cannot undo the write, so the snapshot is dropped and rebuilt on next read.
func (c *CachedContext[T]) reloadAfterWrite(ctx context.Context, reason string) {
	if err := c.reloadLocked(ctx, reason); err != nil {
		c.invalidateLocked(err)
	}
}

func (c *CachedContext[T]) invalidateLocked(err error) {
	c.log.WithError(err).Warn("snapshot invalidated after write")
	c.loaded = false
	c.entries = nil
}

func (c *CachedContext[T]) refetchLocked(ctx context.Context, id string) {
	item, err := c.base.collection.GetSingle(ctx, id)
	if errors.Is(err, ErrNotFound) {
		if i := c.indexLocked(id); i >= 0 {
			c.entries = slices.Delete(c.entries, i, i+1)
		}
		return
	}
	if err != nil {
		c.invalidateLocked(err)
		return
	}
	e, err := newEntry(item)
	if err != nil {
		c.invalidateLocked(err)
		return
	}
	c.upsertLocked(e)
}

func (c *CachedContext[T]) matchIDsLocked(ctx context.Context, filter Filter[T]) ([]string, error) {
	if !c.loaded {
		if err := c.reloadLocked(ctx, "warmup"); err != nil {
			return nil, err
		}
	}
	matched := matching(c.entries, filter)
	ids := make([]string, len(matched))
	for i, e := range matched {
		ids[i] = e.id
	}
	return ids, nil
}

func (c *CachedContext[T]) indexLocked(id string) int {
	return slices.IndexFunc(c.entries, func(e entry[T]) bool {
		return e.id == id
	})
}

// upsertLocked overwrites the entry with the same id. With an ordering, an
// entry whose key changed is moved after every entry it does not sort before.
func (c *CachedContext[T]) upsertLocked(e entry[T]) {
	i := c.indexLocked(e.id)
	if i >= 0 {
		old := c.entries[i]
		c.entries[i] = e
		if c.less == nil || !(c.less(old.value, e.value) || c.less(e.value, old.value)) {
			return
		}
		c.entries = slices.Delete(c.entries, i, i+1)
	}
	if c.less == nil {
		c.entries = append(c.entries, e)
		return
	}
	pos := sort.Search(len(c.entries), func(j int) bool {
		return c.less(e.value, c.entries[j].value)
	})
	c.entries = slices.Insert(c.entries, pos, e)
}

// newEntry stores a private copy so later changes to item do not leak in.
func newEntry[T Entity](item T) (entry[T], error) {
	raw, err := Encode(item)
	if err != nil {
		return entry[T]{}, err
	}
	value, err := Decode[T](raw)
	if err != nil {
		return entry[T]{}, err
	}
	return entry[T]{id: item.GetID(), raw: raw, value: value}, nil
}

func matching[T Entity](entries []entry[T], filter Filter[T]) []entry[T] {
	var out []entry[T]
	for _, e := range entries {
		if filter.MatchConditions(e.raw) && filter.MatchPredicates(e.value) {
			out = append(out, e)
		}
	}
	return out
}

func decodeEntries[T Entity](entries []entry[T]) ([]T, error) {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		item, err := Decode[T](e.raw)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
