package commandrequest

import (
	"time"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

type Type string

const (
	Promotion         Type = "Promotion"
	Demotion          Type = "Demotion"
	Loa               Type = "Loa"
	Discharge         Type = "Discharge"
	IndividualRole    Type = "Individual Role"
	UnitRole          Type = "Unit Role"
	Transfer          Type = "Transfer"
	AuxiliaryTransfer Type = "Auxiliary Transfer"
	UnitRemoval       Type = "Unit Removal"
	ReinstateMember   Type = "Reinstate Member"
)

var Types = []Type{
	Promotion,
	Demotion,
	Loa,
	Discharge,
	IndividualRole,
	UnitRole,
	Transfer,
	AuxiliaryTransfer,
	UnitRemoval,
	ReinstateMember,
}

type ReviewState string

const (
	Pending  ReviewState = "Pending"
	Approved ReviewState = "Approved"
	Rejected ReviewState = "Rejected"
	Error    ReviewState = "Error"
)

func (s ReviewState) IsValid() bool {
	switch s {
	case Pending, Approved, Rejected, Error:
		return true
	}
	return false
}

// CommandRequest is a proposed personnel change awaiting its reviewers.
// Reviewers holds the keys of Reviews in display order.
type CommandRequest struct {
	datacontext.Base
	Type             Type                   `json:"type"`
	Recipient        string                 `json:"recipient"`
	Requester        string                 `json:"requester"`
	Value            string                 `json:"value"`
	SecondaryValue   string                 `json:"secondaryValue"`
	DisplayValue     string                 `json:"displayValue"`
	DisplayFrom      string                 `json:"displayFrom"`
	DisplayRecipient string                 `json:"displayRecipient"`
	DisplayRequester string                 `json:"displayRequester"`
	Reason           string                 `json:"reason"`
	Reviews          map[string]ReviewState `json:"reviews"`
	Reviewers        []string               `json:"reviewers"`
	DateCreated      time.Time              `json:"dateCreated"`
}

// Archived is a resolved request in the archive store. It shares the
// document shape of CommandRequest.
type Archived struct {
	CommandRequest
}

func NewArchived(r *CommandRequest) *Archived {
	return &Archived{CommandRequest: *r}
}

// IsApproved is true when every review is Approved.
func (r *CommandRequest) IsApproved() bool {
	for _, state := range r.Reviews {
		if state != Approved {
			return false
		}
	}
	return true
}

// IsRejected is true when any review is Rejected.
func (r *CommandRequest) IsRejected() bool {
	for _, state := range r.Reviews {
		if state == Rejected {
			return true
		}
	}
	return false
}

// ReviewState returns Error for ids that are not reviewers.
func (r *CommandRequest) ReviewState(reviewerID string) ReviewState {
	state, ok := r.Reviews[reviewerID]
	if !ok {
		return Error
	}
	return state
}

func (r *CommandRequest) HasReviewer(reviewerID string) bool {
	_, ok := r.Reviews[reviewerID]
	return ok
}
