package services

import (
	"context"
	"time"

	"github.com/uksf/uksf-api/modules/notifications/domain/notification"
	"github.com/uksf/uksf-api/modules/notifications/infrastructure/persistence"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/serrors"
)

var ErrNoOwner = serrors.NewError("NOTIFICATION_NO_OWNER", "notification owner is required", "")

type NotificationsService struct {
	notifications persistence.NotificationsContext
	now           func() time.Time
}

func NewNotificationsService(notifications persistence.NotificationsContext) *NotificationsService {
	return &NotificationsService{notifications: notifications, now: time.Now}
}

func (s *NotificationsService) Data() persistence.NotificationsContext {
	return s.notifications
}

// Notify stores an unread notification for owner.
func (s *NotificationsService) Notify(ctx context.Context, owner, icon, message, link string) error {
	return s.Add(ctx, &notification.Notification{
		Owner:   owner,
		Icon:    icon,
		Message: message,
		Link:    link,
	})
}

func (s *NotificationsService) Add(ctx context.Context, n *notification.Notification) error {
	if n.Owner == "" {
		return ErrNoOwner
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now().UTC()
	}
	n.Read = false
	return s.notifications.Add(ctx, n)
}

// GetForOwner returns owner's notifications, newest first.
func (s *NotificationsService) GetForOwner(ctx context.Context, owner string) ([]*notification.Notification, error) {
	items, err := s.notifications.Find(ctx, datacontext.Eq[*notification.Notification]("owner", owner))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

// MarkRead marks the given notifications of owner read. Ids belonging to
// someone else are ignored.
func (s *NotificationsService) MarkRead(ctx context.Context, owner string, ids ...string) error {
	for _, id := range ids {
		err := s.notifications.UpdateOne(ctx,
			datacontext.ByID[*notification.Notification](id).And(
				datacontext.Eq[*notification.Notification]("owner", owner),
			),
			datacontext.Set("read", true),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every notification of owner.
func (s *NotificationsService) Clear(ctx context.Context, owner string) error {
	return s.notifications.DeleteMany(ctx, datacontext.Eq[*notification.Notification]("owner", owner))
}
