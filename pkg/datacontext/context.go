package datacontext

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/uksf/uksf-api/pkg/eventbus"
)

var tracer = otel.Tracer("github.com/uksf/uksf-api/pkg/datacontext")

// DataContext is the data access surface services depend on. Every write
// persists first and then publishes one EventModel per affected document.
type DataContext[T Entity] interface {
	Name() string
	Get(ctx context.Context) ([]T, error)
	Find(ctx context.Context, filter Filter[T]) ([]T, error)
	GetSingle(ctx context.Context, id string) (T, error)
	FindSingle(ctx context.Context, filter Filter[T]) (T, error)
	Add(ctx context.Context, item T) error
	Delete(ctx context.Context, item T) error
	DeleteByID(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, filter Filter[T]) error
	Replace(ctx context.Context, item T) error
	UpdateField(ctx context.Context, id, path string, value any) error
	Update(ctx context.Context, id string, update Update) error
	UpdateOne(ctx context.Context, filter Filter[T], update Update) error
	UpdateMany(ctx context.Context, filter Filter[T], update Update) error
}

// Context is the uncached DataContext: reads go straight to the collection.
type Context[T Entity] struct {
	name       string
	collection Collection[T]
	bus        eventbus.EventBus
}

func NewContext[T Entity](name string, collection Collection[T], bus eventbus.EventBus) *Context[T] {
	return &Context[T]{name: name, collection: collection, bus: bus}
}

func (c *Context[T]) Name() string {
	return c.name
}

func (c *Context[T]) Get(ctx context.Context) ([]T, error) {
	return c.collection.Get(ctx)
}

func (c *Context[T]) Find(ctx context.Context, filter Filter[T]) ([]T, error) {
	return c.collection.Find(ctx, filter)
}

func (c *Context[T]) GetSingle(ctx context.Context, id string) (T, error) {
	return c.collection.GetSingle(ctx, id)
}

func (c *Context[T]) FindSingle(ctx context.Context, filter Filter[T]) (T, error) {
	return c.collection.FindSingle(ctx, filter)
}

func (c *Context[T]) Add(ctx context.Context, item T) error {
	if isNil(item) {
		return ErrNilItem
	}
	ctx, span := c.span(ctx, "Add")
	defer span.End()
	if item.GetID() == "" {
		item.SetID(NewObjectID())
	}
	if err := c.collection.Add(ctx, item); err != nil {
		return fail(span, err)
	}
	c.emitAdd("Add", item)
	return nil
}

func (c *Context[T]) Delete(ctx context.Context, item T) error {
	if isNil(item) {
		return ErrNilItem
	}
	return c.DeleteByID(ctx, item.GetID())
}

func (c *Context[T]) DeleteByID(ctx context.Context, id string) error {
	ctx, span := c.span(ctx, "Delete")
	defer span.End()
	if err := c.collection.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	c.emit(EventDelete, "Delete", id)
	return nil
}

// DeleteMany reads the matching ids before deleting so each can be announced.
func (c *Context[T]) DeleteMany(ctx context.Context, filter Filter[T]) error {
	ctx, span := c.span(ctx, "DeleteMany")
	defer span.End()
	items, err := c.collection.Find(ctx, filter)
	if err != nil {
		return fail(span, err)
	}
	if len(items) == 0 {
		return nil
	}
	if err := c.collection.DeleteMany(ctx, filter); err != nil {
		return fail(span, err)
	}
	for _, item := range items {
		c.emit(EventDelete, "DeleteMany", item.GetID())
	}
	return nil
}

func (c *Context[T]) Replace(ctx context.Context, item T) error {
	if isNil(item) {
		return ErrNilItem
	}
	ctx, span := c.span(ctx, "Replace")
	defer span.End()
	if err := c.collection.Replace(ctx, item.GetID(), item); err != nil {
		return fail(span, err)
	}
	c.emit(EventUpdate, "Replace", item.GetID())
	return nil
}

func (c *Context[T]) UpdateField(ctx context.Context, id, path string, value any) error {
	return c.Update(ctx, id, Set(path, value))
}

func (c *Context[T]) Update(ctx context.Context, id string, update Update) error {
	ctx, span := c.span(ctx, "Update")
	defer span.End()
	if err := c.collection.Update(ctx, id, update); err != nil {
		return fail(span, err)
	}
	c.emit(EventUpdate, "Update", id)
	return nil
}

// UpdateOne resolves the first matching id, then updates it. No match is a
// silent no-op.
func (c *Context[T]) UpdateOne(ctx context.Context, filter Filter[T], update Update) error {
	ctx, span := c.span(ctx, "UpdateOne")
	defer span.End()
	items, err := c.collection.Find(ctx, filter)
	if err != nil {
		return fail(span, err)
	}
	if len(items) == 0 {
		return nil
	}
	id := items[0].GetID()
	if err := c.collection.UpdateOne(ctx, ByID[T](id), update); err != nil {
		return fail(span, err)
	}
	c.emit(EventUpdate, "Update", id)
	return nil
}

func (c *Context[T]) UpdateMany(ctx context.Context, filter Filter[T], update Update) error {
	ctx, span := c.span(ctx, "UpdateMany")
	defer span.End()
	items, err := c.collection.Find(ctx, filter)
	if err != nil {
		return fail(span, err)
	}
	if len(items) == 0 {
		return nil
	}
	if err := c.collection.UpdateMany(ctx, filter, update); err != nil {
		return fail(span, err)
	}
	for _, item := range items {
		c.emit(EventUpdate, "UpdateMany", item.GetID())
	}
	return nil
}

func (c *Context[T]) origin(op string) string {
	return c.name + "." + op
}

func (c *Context[T]) emitAdd(op string, item T) {
	recordEvent(c.name, EventAdd)
	if c.bus != nil {
		c.bus.Publish(addEvent(c.origin(op), item))
	}
}

func (c *Context[T]) emit(kind EventType, op, id string) {
	recordEvent(c.name, kind)
	if c.bus != nil {
		c.bus.Publish(idEvent[T](kind, c.origin(op), id))
	}
}

func (c *Context[T]) span(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "datacontext."+c.origin(op), trace.WithAttributes(
		attribute.String("datacontext.name", c.name),
		attribute.String("datacontext.operation", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
