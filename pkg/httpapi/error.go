package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/uksf/uksf-api/pkg/composables"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// RequestID returns the id assigned by the logging middleware, or "".
func RequestID(r *http.Request) string {
	if params, ok := composables.UseParams(r.Context()); ok {
		return params.RequestID
	}
	return ""
}

// WriteRequestError is WriteError with the request id in meta.
func WriteRequestError(w http.ResponseWriter, r *http.Request, status int, code, message string) error {
	var meta map[string]string
	if id := RequestID(r); id != "" {
		meta = map[string]string{"request_id": id}
	}
	return WriteError(w, status, code, message, meta)
}
