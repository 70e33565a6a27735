package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/logging/domain/auditlog"
	"github.com/uksf/uksf-api/modules/logging/infrastructure/persistence"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/datacontext"
)

type AuditService struct {
	contexts *persistence.Contexts
	now      func() time.Time
}

func NewAuditService(contexts *persistence.Contexts) *AuditService {
	return &AuditService{contexts: contexts, now: time.Now}
}

// LogAudit writes message to the log stream and stores it. Storage failures
// are logged and dropped; the audited change has already happened.
func (s *AuditService) LogAudit(ctx context.Context, message, subjectID string) {
	who, err := composables.UseActor(ctx)
	if err != nil {
		who = auditlog.System
	}
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"component": "audit",
		"who":       who,
		"subject":   subjectID,
	})
	logger.Info(message)

	entry := &auditlog.AuditLog{
		Who:       who,
		Message:   message,
		Subject:   subjectID,
		Timestamp: s.now().UTC(),
	}
	if err := s.contexts.Audit.Add(ctx, entry); err != nil {
		logger.WithError(err).Warn("failed to persist audit log")
	}
}

func (s *AuditService) CreateActionLog(ctx context.Context, entry *auditlog.ActionLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	return s.contexts.Actions.Add(ctx, entry)
}

// GetBySubject returns the audit trail of one subject, oldest first.
func (s *AuditService) GetBySubject(ctx context.Context, subjectID string) ([]*auditlog.AuditLog, error) {
	return s.contexts.Audit.Find(ctx, datacontext.Eq[*auditlog.AuditLog]("subject", subjectID))
}

func (s *AuditService) GetActions(ctx context.Context, who string) ([]*auditlog.ActionLog, error) {
	return s.contexts.Actions.Find(ctx, datacontext.Eq[*auditlog.ActionLog]("who", who))
}
