package services_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/modules/notifications/domain/notification"
	"github.com/uksf/uksf-api/modules/notifications/handlers"
	"github.com/uksf/uksf-api/modules/notifications/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/notifications/services"
	"github.com/uksf/uksf-api/pkg/datacontext/memory"
	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/features"
	"github.com/uksf/uksf-api/pkg/logging"
)

type pushed struct {
	channel string
	method  string
	message string
}

type hubStub struct {
	sent []pushed
}

func (h *hubStub) Broadcast(channel, method string, payload any) error {
	h.sent = append(h.sent, pushed{channel: channel, method: method, message: payload.(*notification.Notification).Message})
	return nil
}

func newService(t *testing.T) (*services.NotificationsService, *hubStub) {
	t.Helper()
	log := logging.ConsoleLogger(logrus.ErrorLevel)
	bus := eventbus.NewEventPublisher(log)
	hub := &hubStub{}
	handlers.RegisterNotificationsEventsHandler(bus, hub, log)
	ctx := persistence.NewNotificationsContext(memory.New(), bus, features.NewStatic(features.UseMemoryDataCache), log)
	return services.NewNotificationsService(ctx), hub
}

func TestNotify_StoresAndPushes(t *testing.T) {
	svc, hub := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, "a1", "promotion", "first", ""))
	require.NoError(t, svc.Notify(ctx, "a1", "request", "second", "/command/requests"))
	require.NoError(t, svc.Notify(ctx, "a2", "comment", "other", ""))

	items, err := svc.GetForOwner(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "second", items[0].Message)
	require.False(t, items[0].Read)
	require.False(t, items[0].Timestamp.IsZero())

	require.Equal(t, []pushed{
		{channel: "account/a1", method: handlers.MethodReceiveNotification, message: "first"},
		{channel: "account/a1", method: handlers.MethodReceiveNotification, message: "second"},
		{channel: "account/a2", method: handlers.MethodReceiveNotification, message: "other"},
	}, hub.sent)

	require.ErrorIs(t, svc.Notify(ctx, "", "promotion", "nobody", ""), services.ErrNoOwner)
}

func TestMarkRead_OnlyOwnNotifications(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, "a1", "promotion", "mine", ""))
	require.NoError(t, svc.Notify(ctx, "a2", "promotion", "theirs", ""))
	mine, err := svc.GetForOwner(ctx, "a1")
	require.NoError(t, err)
	theirs, err := svc.GetForOwner(ctx, "a2")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, "a1", mine[0].ID, theirs[0].ID))

	mine, err = svc.GetForOwner(ctx, "a1")
	require.NoError(t, err)
	require.True(t, mine[0].Read)
	theirs, err = svc.GetForOwner(ctx, "a2")
	require.NoError(t, err)
	require.False(t, theirs[0].Read)

	require.NoError(t, svc.Clear(ctx, "a1"))
	mine, err = svc.GetForOwner(ctx, "a1")
	require.NoError(t, err)
	require.Empty(t, mine)
}
