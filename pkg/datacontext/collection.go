package datacontext

import (
	"context"

	"github.com/tidwall/gjson"
)

// Collection is the storage gateway for one document collection. It owns
// durability; contexts own events and caching. Reads return documents in
// insertion order. Writes by id return ErrNotFound when the id is absent;
// filter writes that match nothing succeed.
type Collection[T Entity] interface {
	Name() string
	Get(ctx context.Context) ([]T, error)
	Find(ctx context.Context, filter Filter[T]) ([]T, error)
	GetSingle(ctx context.Context, id string) (T, error)
	FindSingle(ctx context.Context, filter Filter[T]) (T, error)
	Add(ctx context.Context, item T) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, filter Filter[T]) error
	Replace(ctx context.Context, id string, item T) error
	Update(ctx context.Context, id string, update Update) error
	UpdateOne(ctx context.Context, filter Filter[T], update Update) error
	UpdateMany(ctx context.Context, filter Filter[T], update Update) error
}

// Backend hands out untyped collections on one storage engine.
type Backend interface {
	Collection(name string) RawCollection
}

// RawCollection is the untyped surface storage engines implement. Documents
// are JSON objects carrying their id under "id".
type RawCollection interface {
	Name() string
	All(ctx context.Context) ([][]byte, error)
	// Match returns the documents satisfying every condition, in order.
	Match(ctx context.Context, conds []Condition) ([][]byte, error)
	// Get returns ErrNotFound when id is absent.
	Get(ctx context.Context, id string) ([]byte, error)
	Insert(ctx context.Context, id string, doc []byte) error
	// Remove deletes the given ids and reports how many existed.
	Remove(ctx context.Context, ids ...string) (int, error)
	// Put overwrites an existing document and returns ErrNotFound when absent.
	Put(ctx context.Context, id string, doc []byte) error
	// Modify applies update to the given ids and reports how many existed.
	Modify(ctx context.Context, ids []string, update Update) (int, error)
}

// Open layers typed access over a backend collection. Conditions are pushed
// to the engine; predicates are evaluated here.
func Open[T Entity](backend Backend, name string) Collection[T] {
	return &collection[T]{raw: backend.Collection(name)}
}

type collection[T Entity] struct {
	raw RawCollection
}

func (c *collection[T]) Name() string {
	return c.raw.Name()
}

func (c *collection[T]) Get(ctx context.Context) ([]T, error) {
	docs, err := c.raw.All(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeAll[T](docs)
}

func (c *collection[T]) Find(ctx context.Context, filter Filter[T]) ([]T, error) {
	docs, err := c.raw.Match(ctx, filter.Conditions())
	if err != nil {
		return nil, err
	}
	items, err := DecodeAll[T](docs)
	if err != nil {
		return nil, err
	}
	if !filter.HasPredicates() {
		return items, nil
	}
	out := items[:0]
	for _, item := range items {
		if filter.MatchPredicates(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *collection[T]) GetSingle(ctx context.Context, id string) (T, error) {
	doc, err := c.raw.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](doc)
}

func (c *collection[T]) FindSingle(ctx context.Context, filter Filter[T]) (T, error) {
	items, err := c.Find(ctx, filter)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(items) == 0 {
		var zero T
		return zero, ErrNotFound
	}
	return items[0], nil
}

func (c *collection[T]) Add(ctx context.Context, item T) error {
	doc, err := Encode(item)
	if err != nil {
		return err
	}
	return c.raw.Insert(ctx, item.GetID(), doc)
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	n, err := c.raw.Remove(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *collection[T]) DeleteMany(ctx context.Context, filter Filter[T]) error {
	ids, err := c.matchIDs(ctx, filter)
	if err != nil || len(ids) == 0 {
		return err
	}
	_, err = c.raw.Remove(ctx, ids...)
	return err
}

func (c *collection[T]) Replace(ctx context.Context, id string, item T) error {
	item.SetID(id)
	doc, err := Encode(item)
	if err != nil {
		return err
	}
	return c.raw.Put(ctx, id, doc)
}

func (c *collection[T]) Update(ctx context.Context, id string, update Update) error {
	n, err := c.raw.Modify(ctx, []string{id}, update)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *collection[T]) UpdateOne(ctx context.Context, filter Filter[T], update Update) error {
	ids, err := c.matchIDs(ctx, filter)
	if err != nil || len(ids) == 0 {
		return err
	}
	_, err = c.raw.Modify(ctx, ids[:1], update)
	return err
}

func (c *collection[T]) UpdateMany(ctx context.Context, filter Filter[T], update Update) error {
	ids, err := c.matchIDs(ctx, filter)
	if err != nil || len(ids) == 0 {
		return err
	}
	_, err = c.raw.Modify(ctx, ids, update)
	return err
}

func (c *collection[T]) matchIDs(ctx context.Context, filter Filter[T]) ([]string, error) {
	if id, ok := filter.ID(); ok {
		return []string{id}, nil
	}
	docs, err := c.raw.Match(ctx, filter.Conditions())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if filter.HasPredicates() {
			item, err := Decode[T](doc)
			if err != nil {
				return nil, err
			}
			if !filter.MatchPredicates(item) {
				continue
			}
		}
		ids = append(ids, DocumentID(doc))
	}
	return ids, nil
}

// DocumentID reads the id of a stored document.
func DocumentID(doc []byte) string {
	return gjson.GetBytes(doc, "id").String()
}
