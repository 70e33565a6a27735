package rank

import "github.com/uksf/uksf-api/pkg/datacontext"

// Well known ranks the workflow reasons about.
const (
	Recruit = "Recruit"
	Private = "Private"
)

// Rank orders ascend with seniority: order 0 is the most senior rank.
type Rank struct {
	datacontext.Base
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Order        int    `json:"order"`
	TeamspeakID  string `json:"teamspeakGroup,omitempty"`
	DiscordID    string `json:"discordRoleId,omitempty"`
}
