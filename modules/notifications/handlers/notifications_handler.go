package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/notifications/domain/notification"
	"github.com/uksf/uksf-api/pkg/application"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/eventbus"
)

const MethodReceiveNotification = "ReceiveNotification"

type Broadcaster interface {
	Broadcast(channel, method string, payload any) error
}

// NotificationsEventsHandler pushes new notifications to their owner's
// connections.
type NotificationsEventsHandler struct {
	hub    Broadcaster
	logger *logrus.Logger
}

func RegisterNotificationsEventsHandler(bus eventbus.EventBus, hub Broadcaster, logger *logrus.Logger) *NotificationsEventsHandler {
	h := &NotificationsEventsHandler{hub: hub, logger: logger}
	bus.Subscribe(h.onNotificationChanged)
	return h
}

func (h *NotificationsEventsHandler) onNotificationChanged(e *datacontext.EventModel[*notification.Notification]) {
	if e == nil || e.Type != datacontext.EventAdd || e.Data.Data == nil {
		return
	}
	n := e.Data.Data
	if err := h.hub.Broadcast(application.AccountChannel(n.Owner), MethodReceiveNotification, n); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"component": "notifications",
			"owner":     n.Owner,
		}).Warn("failed to push notification")
	}
}
