package datacontext_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/datacontext/memory"
	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/features"
)

type item struct {
	datacontext.Base
	Name  string   `json:"name"`
	Order int      `json:"order"`
	Tags  []string `json:"tags,omitempty"`
}

type recorder struct {
	events []*datacontext.EventModel[*item]
}

func (r *recorder) handle(e *datacontext.EventModel[*item]) {
	r.events = append(r.events, e)
}

func (r *recorder) ids() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Data.ID
	}
	return out
}

func (r *recorder) types() []datacontext.EventType {
	out := make([]datacontext.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) reset() {
	r.events = nil
}

// failing wraps a collection and fails every write once armed.
type failing struct {
	datacontext.Collection[*item]
	armed bool
}

var errGateway = errors.New("gateway offline")

func (f *failing) Add(ctx context.Context, it *item) error {
	if f.armed {
		return errGateway
	}
	return f.Collection.Add(ctx, it)
}

func (f *failing) Delete(ctx context.Context, id string) error {
	if f.armed {
		return errGateway
	}
	return f.Collection.Delete(ctx, id)
}

func (f *failing) DeleteMany(ctx context.Context, filter datacontext.Filter[*item]) error {
	if f.armed {
		return errGateway
	}
	return f.Collection.DeleteMany(ctx, filter)
}

func (f *failing) Replace(ctx context.Context, id string, it *item) error {
	if f.armed {
		return errGateway
	}
	return f.Collection.Replace(ctx, id, it)
}

func (f *failing) Update(ctx context.Context, id string, u datacontext.Update) error {
	if f.armed {
		return errGateway
	}
	return f.Collection.Update(ctx, id, u)
}

func (f *failing) UpdateOne(ctx context.Context, filter datacontext.Filter[*item], u datacontext.Update) error {
	if f.armed {
		return errGateway
	}
	return f.Collection.UpdateOne(ctx, filter, u)
}

func (f *failing) UpdateMany(ctx context.Context, filter datacontext.Filter[*item], u datacontext.Update) error {
	if f.armed {
		return errGateway
	}
	return f.Collection.UpdateMany(ctx, filter, u)
}

type fixture struct {
	ctx        context.Context
	collection *failing
	events     *recorder
	bus        eventbus.EventBusWithError
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := eventbus.NewEventPublisher(logrus.New())
	rec := &recorder{}
	bus.Subscribe(rec.handle)
	return &fixture{
		ctx:        context.Background(),
		collection: &failing{Collection: datacontext.Open[*item](memory.New(), "items")},
		events:     rec,
		bus:        bus,
	}
}

// contexts returns the same fixture behind every DataContext flavour.
func contexts(t *testing.T) map[string]func(f *fixture) datacontext.DataContext[*item] {
	t.Helper()
	return map[string]func(f *fixture) datacontext.DataContext[*item]{
		"uncached": func(f *fixture) datacontext.DataContext[*item] {
			return datacontext.NewContext("Item", datacontext.Collection[*item](f.collection), f.bus)
		},
		"cache off": func(f *fixture) datacontext.DataContext[*item] {
			return datacontext.NewCachedContext("Item", datacontext.Collection[*item](f.collection), f.bus, features.NewStatic())
		},
		"cache on": func(f *fixture) datacontext.DataContext[*item] {
			return datacontext.NewCachedContext("Item", datacontext.Collection[*item](f.collection), f.bus, features.NewStatic(features.UseMemoryDataCache))
		},
	}
}

func seed(t *testing.T, f *fixture, dc datacontext.DataContext[*item], names ...string) []*item {
	t.Helper()
	out := make([]*item, 0, len(names))
	for i, name := range names {
		it := &item{Name: name, Order: i}
		require.NoError(t, dc.Add(f.ctx, it))
		out = append(out, it)
	}
	f.events.reset()
	return out
}

func TestContext_AddAssignsIDAndEmits(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			dc := build(f)

			it := &item{Name: "alpha"}
			require.NoError(t, dc.Add(f.ctx, it))

			require.True(t, datacontext.IsObjectID(it.ID))
			require.Len(t, f.events.events, 1)
			ev := f.events.events[0]
			require.Equal(t, datacontext.EventAdd, ev.Type)
			require.Empty(t, ev.Data.ID)
			require.Equal(t, it.ID, ev.Data.Data.ID)
			require.Equal(t, "Item.Add", ev.Origin)

			got, err := dc.GetSingle(f.ctx, it.ID)
			require.NoError(t, err)
			require.Equal(t, "alpha", got.Name)
		})
	}
}

func TestContext_AddNil(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			err := build(f).Add(f.ctx, nil)
			require.ErrorIs(t, err, datacontext.ErrNilItem)
			require.Empty(t, f.events.events)
		})
	}
}

func TestContext_SingleWritesEmitOneEvent(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			dc := build(f)
			items := seed(t, f, dc, "a", "b", "c")

			items[0].Name = "a2"
			require.NoError(t, dc.Replace(f.ctx, items[0]))
			require.NoError(t, dc.UpdateField(f.ctx, items[1].ID, "name", "b2"))
			require.NoError(t, dc.Delete(f.ctx, items[2]))

			require.Equal(t, []datacontext.EventType{datacontext.EventUpdate, datacontext.EventUpdate, datacontext.EventDelete}, f.events.types())
			require.Equal(t, []string{items[0].ID, items[1].ID, items[2].ID}, f.events.ids())
			for _, ev := range f.events.events {
				require.Nil(t, ev.Data.Data)
			}
			require.Equal(t, "Item.Replace", f.events.events[0].Origin)
			require.Equal(t, "Item.Update", f.events.events[1].Origin)
			require.Equal(t, "Item.Delete", f.events.events[2].Origin)
		})
	}
}

func TestContext_UpdateScenario(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			dc := build(f)
			items := seed(t, f, dc, "1", "1", "3")

			require.NoError(t, dc.UpdateField(f.ctx, items[0].ID, "name", "1"))
			require.NoError(t, dc.Update(f.ctx, items[1].ID, datacontext.Set("name", "2")))
			require.NoError(t, dc.UpdateOne(f.ctx, datacontext.Where(func(i *item) bool { return i.ID == items[2].ID }), datacontext.Set("name", "3")))

			require.Len(t, f.events.events, 3)
			require.Equal(t, []string{items[0].ID, items[1].ID, items[2].ID}, f.events.ids())
			for _, ev := range f.events.events {
				require.Equal(t, datacontext.EventUpdate, ev.Type)
				require.Nil(t, ev.Data.Data)
			}

			got, err := dc.GetSingle(f.ctx, items[1].ID)
			require.NoError(t, err)
			require.Equal(t, "2", got.Name)
		})
	}
}

func TestContext_DeleteManyScenario(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			dc := build(f)
			items := seed(t, f, dc, "1", "1")

			require.NoError(t, dc.DeleteMany(f.ctx, datacontext.Eq[*item]("name", "1")))

			require.Equal(t, []datacontext.EventType{datacontext.EventDelete, datacontext.EventDelete}, f.events.types())
			require.Equal(t, []string{items[0].ID, items[1].ID}, f.events.ids())
			all, err := dc.Get(f.ctx)
			require.NoError(t, err)
			require.Empty(t, all)
		})
	}
}

func TestContext_UpdateManyEmitsPerMatch(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			dc := build(f)
			items := seed(t, f, dc, "x", "y", "x")

			require.NoError(t, dc.UpdateMany(f.ctx, datacontext.Eq[*item]("name", "x"), datacontext.AddToSet("tags", "t")))

			require.Equal(t, []string{items[0].ID, items[2].ID}, f.events.ids())
			tagged, err := dc.Find(f.ctx, datacontext.Contains[*item]("tags", "t"))
			require.NoError(t, err)
			require.Len(t, tagged, 2)
		})
	}
}

func TestContext_UpdateOneNoMatchIsNoop(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			dc := build(f)
			seed(t, f, dc, "a")

			err := dc.UpdateOne(f.ctx, datacontext.Eq[*item]("name", "missing"), datacontext.Set("name", "z"))
			require.NoError(t, err)
			require.NoError(t, dc.UpdateMany(f.ctx, datacontext.Eq[*item]("name", "missing"), datacontext.Set("name", "z")))
			require.NoError(t, dc.DeleteMany(f.ctx, datacontext.Eq[*item]("name", "missing")))
			require.Empty(t, f.events.events)
		})
	}
}

func TestContext_MissingIDIsNotFound(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			dc := build(f)
			seed(t, f, dc, "a")

			_, err := dc.GetSingle(f.ctx, datacontext.NewObjectID())
			require.ErrorIs(t, err, datacontext.ErrNotFound)
			err = dc.Update(f.ctx, datacontext.NewObjectID(), datacontext.Set("name", "b"))
			require.ErrorIs(t, err, datacontext.ErrNotFound)
			require.Empty(t, f.events.events)
		})
	}
}

func TestContext_GatewayFailureLeavesStateUntouched(t *testing.T) {
	for name, build := range contexts(t) {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			dc := build(f)
			items := seed(t, f, dc, "a", "b")
			before, err := dc.Get(f.ctx)
			require.NoError(t, err)

			f.collection.armed = true
			items[0].Name = "changed"
			require.ErrorIs(t, dc.Add(f.ctx, &item{Name: "c"}), errGateway)
			require.ErrorIs(t, dc.Replace(f.ctx, items[0]), errGateway)
			require.ErrorIs(t, dc.Update(f.ctx, items[1].ID, datacontext.Set("name", "z")), errGateway)
			require.ErrorIs(t, dc.UpdateOne(f.ctx, datacontext.ByID[*item](items[1].ID), datacontext.Set("name", "z")), errGateway)
			require.ErrorIs(t, dc.UpdateMany(f.ctx, datacontext.All[*item](), datacontext.Set("name", "z")), errGateway)
			require.ErrorIs(t, dc.DeleteByID(f.ctx, items[1].ID), errGateway)
			require.ErrorIs(t, dc.DeleteMany(f.ctx, datacontext.All[*item]()), errGateway)

			require.Empty(t, f.events.events)
			after, err := dc.Get(f.ctx)
			require.NoError(t, err)
			require.Equal(t, before, after)
		})
	}
}
