package discharge

import (
	"time"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

type Discharge struct {
	Timestamp    time.Time `json:"timestamp"`
	Rank         string    `json:"rank"`
	Unit         string    `json:"unit"`
	Role         string    `json:"role"`
	DischargedBy string    `json:"dischargedBy"`
	Reason       string    `json:"reason"`
	RequestID    string    `json:"requestId,omitempty"`
}

// Collection is the discharge history of one account.
type Collection struct {
	datacontext.Base
	AccountID  string      `json:"accountId"`
	Name       string      `json:"name"`
	Reinstated bool        `json:"reinstated"`
	Discharges []Discharge `json:"discharges"`
}
