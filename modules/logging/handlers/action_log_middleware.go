package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/uksf/uksf-api/modules/logging/domain/auditlog"
	"github.com/uksf/uksf-api/modules/logging/services"
	"github.com/uksf/uksf-api/pkg/composables"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ActionLogMiddleware records mutating requests made by authenticated
// accounts. Logging is best effort and never blocks the request.
func ActionLogMiddleware(service *services.AuditService, enabled bool) mux.MiddlewareFunc {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				return
			}
			ctx := r.Context()
			who, err := composables.UseActor(ctx)
			if err != nil {
				return
			}

			entry := &auditlog.ActionLog{
				Who:       who,
				Method:    strings.ToUpper(r.Method),
				Path:      r.URL.Path,
				Status:    rec.status,
				UserAgent: r.UserAgent(),
			}
			if params, ok := composables.UseParams(ctx); ok {
				entry.IP = params.IP
			}
			if err := service.CreateActionLog(ctx, entry); err != nil {
				composables.UseLogger(ctx).WithError(err).Warn("action-log: failed to persist request")
			}
		})
	}
}
