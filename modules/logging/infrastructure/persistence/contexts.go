package persistence

import (
	"github.com/uksf/uksf-api/modules/logging/domain/auditlog"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/eventbus"
)

const (
	AuditCollection   = "auditLogs"
	ActionsCollection = "actionLogs"
)

var Collections = []string{AuditCollection, ActionsCollection}

type (
	AuditContext   = datacontext.DataContext[*auditlog.AuditLog]
	ActionsContext = datacontext.DataContext[*auditlog.ActionLog]
)

// Contexts are uncached: logs are written far more often than read.
type Contexts struct {
	Audit   AuditContext
	Actions ActionsContext
}

func NewContexts(backend datacontext.Backend, bus eventbus.EventBus) *Contexts {
	return &Contexts{
		Audit:   datacontext.NewContext("AuditLog", datacontext.Open[*auditlog.AuditLog](backend, AuditCollection), bus),
		Actions: datacontext.NewContext("ActionLog", datacontext.Open[*auditlog.ActionLog](backend, ActionsCollection), bus),
	}
}
