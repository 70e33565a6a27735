package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/modules/logging/handlers"
	"github.com/uksf/uksf-api/modules/logging/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/logging/services"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/datacontext/memory"
)

func TestActionLogMiddleware(t *testing.T) {
	svc := services.NewAuditService(persistence.NewContexts(memory.New(), nil))
	handler := handlers.ActionLogMiddleware(svc, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	serve := func(method, actor string) {
		req := httptest.NewRequest(method, "/command/requests/rank", nil)
		if actor != "" {
			req = req.WithContext(composables.WithActor(req.Context(), actor))
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	serve(http.MethodPost, "a1")
	serve(http.MethodGet, "a1")
	serve(http.MethodPatch, "")

	actions, err := svc.GetActions(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, http.MethodPost, actions[0].Method)
	require.Equal(t, "/command/requests/rank", actions[0].Path)
	require.Equal(t, http.StatusAccepted, actions[0].Status)
}

func TestActionLogMiddleware_Disabled(t *testing.T) {
	svc := services.NewAuditService(persistence.NewContexts(memory.New(), nil))
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	handlers.ActionLogMiddleware(svc, false)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	require.True(t, called)
	actions, err := svc.GetActions(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, actions)
}
