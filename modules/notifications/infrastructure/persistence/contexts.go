package persistence

import (
	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/notifications/domain/notification"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/features"
)

const (
	NotificationsCollection  = "notifications"
	NotificationsContextName = "Notification"
)

var Collections = []string{NotificationsCollection}

type NotificationsContext = datacontext.DataContext[*notification.Notification]

func NewNotificationsContext(backend datacontext.Backend, bus eventbus.EventBus, flags features.Provider, log *logrus.Logger) NotificationsContext {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return datacontext.NewCachedContext(
		NotificationsContextName,
		datacontext.Open[*notification.Notification](backend, NotificationsCollection),
		bus, flags,
		datacontext.WithOrder(func(a, b *notification.Notification) bool {
			return a.Timestamp.Before(b.Timestamp)
		}),
		datacontext.WithLogger[*notification.Notification](
			log.WithField("component", "datacontext").WithField("context", NotificationsContextName),
		),
	)
}
