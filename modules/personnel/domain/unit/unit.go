package unit

import (
	"slices"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

type Branch string

const (
	BranchCombat    Branch = "Combat"
	BranchAuxiliary Branch = "Auxiliary"
	BranchSecondary Branch = "Secondary"
)

// Chain of command positions, most senior first.
const (
	Commander       = "1iC"
	SecondInCommand = "2iC"
	ThirdInCommand  = "3iC"
	NCOiC           = "NCOiC"
)

// Unit is one node of the unit forest. Roots have Parent == datacontext.EmptyID.
type Unit struct {
	datacontext.Base
	Name      string            `json:"name"`
	Shortname string            `json:"shortname"`
	Parent    string            `json:"parent"`
	Branch    Branch            `json:"branch"`
	Order     int               `json:"order"`
	Callsign  string            `json:"callsign,omitempty"`
	Members   []string          `json:"members"`
	Roles     map[string]string `json:"roles"`
}

func (u *Unit) IsRoot() bool {
	return u.Parent == "" || u.Parent == datacontext.EmptyID
}

func (u *Unit) HasMember(id string) bool {
	return slices.Contains(u.Members, id)
}

// Holder returns the member holding role, or "".
func (u *Unit) Holder(role string) string {
	return u.Roles[role]
}

// RoleOf returns the role id holds in this unit.
func (u *Unit) RoleOf(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	for role, holder := range u.Roles {
		if holder == id {
			return role, true
		}
	}
	return "", false
}

func (u *Unit) CommanderID() string {
	return u.Roles[Commander]
}

// Normalize replaces nil collections so stored documents always carry an
// object for roles and an array for members.
func (u *Unit) Normalize() {
	if u.Members == nil {
		u.Members = []string{}
	}
	if u.Roles == nil {
		u.Roles = map[string]string{}
	}
	if u.Parent == "" {
		u.Parent = datacontext.EmptyID
	}
}
