package account

import (
	"fmt"
	"time"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

type MembershipState string

const (
	Unconfirmed MembershipState = "Unconfirmed"
	Confirmed   MembershipState = "Confirmed"
	Member      MembershipState = "Member"
	Discharged  MembershipState = "Discharged"
)

type ServiceRecordEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Occurence string    `json:"occurence"`
	Notes     string    `json:"notes,omitempty"`
}

type Account struct {
	datacontext.Base
	Firstname       string               `json:"firstname"`
	Lastname        string               `json:"lastname"`
	Email           string               `json:"email,omitempty"`
	Rank            string               `json:"rank"`
	UnitAssignment  string               `json:"unitAssignment"`
	RoleAssignment  string               `json:"roleAssignment"`
	MembershipState MembershipState      `json:"membershipState"`
	ServiceRecord   []ServiceRecordEntry `json:"serviceRecord"`
}

func (a *Account) FullName() string {
	return fmt.Sprintf("%s %s", a.Firstname, a.Lastname)
}
