package notification

import (
	"time"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

type Notification struct {
	datacontext.Base
	Owner     string    `json:"owner"`
	Icon      string    `json:"icon"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}
