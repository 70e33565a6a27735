package services

import (
	"fmt"
	"net/http"

	"github.com/uksf/uksf-api/pkg/serrors"
)

var (
	ErrUnknownRequestType = serrors.NewError("COMMAND_UNKNOWN_REQUEST_TYPE", "unknown command request type", "")
	ErrRequestNotFound    = serrors.NewError("COMMAND_REQUEST_NOT_FOUND", "command request not found", "")
)

// ServiceError is a business rule rejection surfaced to the client.
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func errNoReviewers() *ServiceError {
	return newServiceError(http.StatusBadRequest, "COMMAND_NO_REVIEWERS", "Failed to get any commanders for review. Contact an admin", nil)
}

func errDuplicateRequest() *ServiceError {
	return newServiceError(http.StatusConflict, "COMMAND_DUPLICATE_REQUEST", "An equivalent request already exists", nil)
}

func errOverrideForbidden() *ServiceError {
	return newServiceError(http.StatusForbidden, "COMMAND_OVERRIDE_FORBIDDEN", "You are not allowed to override reviews of this request", nil)
}
