package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/command/domain/commandrequest"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/eventbus"
)

// MethodRequestsEvent carries live request changes to connected clients.
const MethodRequestsEvent = "ReceiveRequestsEvent"

type Broadcaster interface {
	Broadcast(channel, method string, payload any) error
}

// RequestsEventsHandler forwards changes of the live request store to the
// requests channel. Archive events carry commandrequest.Archived and never
// reach it.
type RequestsEventsHandler struct {
	hub     Broadcaster
	channel string
	logger  *logrus.Logger
}

func RegisterRequestsEventsHandler(bus eventbus.EventBus, hub Broadcaster, channel string, logger *logrus.Logger) *RequestsEventsHandler {
	h := &RequestsEventsHandler{
		hub:     hub,
		channel: channel,
		logger:  logger,
	}
	bus.Subscribe(h.onRequestChanged)
	return h
}

func (h *RequestsEventsHandler) onRequestChanged(e *datacontext.EventModel[*commandrequest.CommandRequest]) {
	if e == nil || h.hub == nil {
		return
	}
	if err := h.hub.Broadcast(h.channel, MethodRequestsEvent, e); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"component": "command",
			"event":     e.Type,
			"origin":    e.Origin,
		}).Warn("failed to broadcast request event")
	}
}
