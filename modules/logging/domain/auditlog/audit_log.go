package auditlog

import (
	"time"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

// System is recorded as the author of changes made outside a request.
const System = "Server"

type AuditLog struct {
	datacontext.Base
	Who       string    `json:"who"`
	Message   string    `json:"message"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionLog is one mutating API call made by an authenticated account.
type ActionLog struct {
	datacontext.Base
	Who       string    `json:"who"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	UserAgent string    `json:"userAgent"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}
