package loa

import (
	"time"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

type State string

const (
	Pending  State = "Pending"
	Approved State = "Approved"
	Rejected State = "Rejected"
)

type Loa struct {
	datacontext.Base
	Recipient string    `json:"recipient"`
	Submitted time.Time `json:"submitted"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    string    `json:"reason"`
	Emergency bool      `json:"emergency"`
	Late      bool      `json:"late"`
	State     State     `json:"state"`
}
