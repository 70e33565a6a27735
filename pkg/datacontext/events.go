package datacontext

type EventType string

const (
	EventAdd    EventType = "Add"
	EventUpdate EventType = "Update"
	EventDelete EventType = "Delete"
)

// ContextEventData pairs an id with an optional payload. Add events carry
// the item and an empty id; Update and Delete carry only the id.
type ContextEventData[T Entity] struct {
	ID   string `json:"id"`
	Data T      `json:"data"`
}

// EventModel is one change to one document. Subscribers select the entity
// type through the type parameter, e.g. func(*EventModel[*Unit]).
// Origin is "<Context>.<Operation>" and is only meant for diagnostics.
type EventModel[T Entity] struct {
	Type   EventType           `json:"type"`
	Data   ContextEventData[T] `json:"data"`
	Origin string              `json:"origin"`
}

func addEvent[T Entity](origin string, item T) *EventModel[T] {
	return &EventModel[T]{Type: EventAdd, Data: ContextEventData[T]{Data: item}, Origin: origin}
}

func idEvent[T Entity](kind EventType, origin, id string) *EventModel[T] {
	return &EventModel[T]{Type: kind, Data: ContextEventData[T]{ID: id}, Origin: origin}
}
