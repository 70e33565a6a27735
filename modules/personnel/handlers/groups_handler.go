package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/pkg/eventbus"
)

// GroupsHandler is the hand-off point for voice and chat group sync. The
// integrations run out of process and read the log stream.
type GroupsHandler struct {
	logger *logrus.Logger
}

func RegisterGroupsHandler(bus eventbus.EventBus, logger *logrus.Logger) *GroupsHandler {
	h := &GroupsHandler{logger: logger}
	bus.Subscribe(h.onGroupsChanged)
	return h
}

func (h *GroupsHandler) onGroupsChanged(e *account.GroupsChangedEvent) {
	h.logger.WithFields(logrus.Fields{
		"component": "groups",
		"account":   e.AccountID,
		"reason":    e.Reason,
	}).Info("account groups changed")
}
