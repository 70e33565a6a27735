package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/modules/logging/domain/auditlog"
	"github.com/uksf/uksf-api/modules/logging/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/logging/services"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/datacontext/memory"
)

func TestLogAudit_RecordsActor(t *testing.T) {
	svc := services.NewAuditService(persistence.NewContexts(memory.New(), nil))

	svc.LogAudit(composables.WithActor(context.Background(), "a1"), "promoted", "a2")
	svc.LogAudit(context.Background(), "nightly sync", "a2")

	trail, err := svc.GetBySubject(context.Background(), "a2")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	require.Equal(t, "a1", trail[0].Who)
	require.Equal(t, "promoted", trail[0].Message)
	require.Equal(t, auditlog.System, trail[1].Who)
	require.False(t, trail[1].Timestamp.IsZero())
}

type failingBackend struct{}

func (failingBackend) Collection(name string) datacontext.RawCollection {
	return failingCollection{RawCollection: memory.New().Collection(name)}
}

type failingCollection struct {
	datacontext.RawCollection
}

func (failingCollection) Insert(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestLogAudit_SwallowsStorageFailure(t *testing.T) {
	svc := services.NewAuditService(persistence.NewContexts(failingBackend{}, nil))

	require.NotPanics(t, func() {
		svc.LogAudit(context.Background(), "promoted", "a2")
	})
	require.Error(t, svc.CreateActionLog(context.Background(), &auditlog.ActionLog{Who: "a1"}))
}
