package role

import "github.com/uksf/uksf-api/pkg/datacontext"

type Type string

const (
	Individual Type = "Individual"
	UnitRole   Type = "Unit"
)

// Well known individual roles.
const (
	None     = "None"
	Trainee  = "Trainee"
	Rifleman = "Rifleman"
)

type Role struct {
	datacontext.Base
	Name     string `json:"name"`
	Order    int    `json:"order"`
	RoleType Type   `json:"roleType"`
}
