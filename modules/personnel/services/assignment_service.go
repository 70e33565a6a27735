package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/eventbus"
)

// Remove clears the corresponding assignment in UpdateUnitRankAndRole.
const Remove = "REMOVE"

// Notification icons understood by the web client.
const (
	IconPromotion = "promotion"
	IconDemotion  = "demotion"
	IconRequest   = "request"
	IconComment   = "comment"
)

// Notifier delivers a message to one account.
type Notifier interface {
	Notify(ctx context.Context, owner, icon, message, link string) error
}

type AssignmentService struct {
	accounts *AccountsService
	units    *UnitsService
	ranks    *RanksService
	notifier Notifier
	bus      eventbus.EventBus
	now      func() time.Time
}

func NewAssignmentService(
	accounts *AccountsService,
	units *UnitsService,
	ranks *RanksService,
	notifier Notifier,
	bus eventbus.EventBus,
) *AssignmentService {
	return &AssignmentService{
		accounts: accounts,
		units:    units,
		ranks:    ranks,
		notifier: notifier,
		bus:      bus,
		now:      time.Now,
	}
}

// AssignmentChange describes one UpdateUnitRankAndRole call. Empty fields are
// left alone; Remove clears the assignment.
type AssignmentChange struct {
	AccountID string
	Unit      string
	Role      string
	Rank      string
	Notes     string
	Message   string
	Reason    string
}

// UpdateUnitRankAndRole changes the combat unit, role and rank of an
// account, records the change in the service record and notifies the
// account. It returns the message sent.
func (s *AssignmentService) UpdateUnitRankAndRole(ctx context.Context, change AssignmentChange) (string, error) {
	acc, err := s.accounts.GetSingle(ctx, change.AccountID)
	if err != nil {
		return "", err
	}

	var parts []string
	update := datacontext.Update{}
	positive := true

	if change.Unit != "" {
		part, err := s.moveUnit(ctx, acc, change.Unit)
		if err != nil {
			return "", err
		}
		if change.Unit == Remove {
			update = update.Set("unitAssignment", "")
		} else {
			update = update.Set("unitAssignment", change.Unit)
		}
		parts = append(parts, part)
	}

	if change.Role != "" {
		if change.Role == Remove {
			update = update.Set("roleAssignment", "")
			parts = append(parts, fmt.Sprintf("unassigned from role %s", acc.RoleAssignment))
		} else {
			update = update.Set("roleAssignment", change.Role)
			parts = append(parts, fmt.Sprintf("assigned as %s", article(change.Role)))
		}
	}

	if change.Rank != "" {
		switch {
		case change.Rank == Remove:
			update = update.Set("rank", "")
			parts = append(parts, fmt.Sprintf("demoted from %s", acc.Rank))
			positive = false
		case s.ranks.IsSuperior(ctx, change.Rank, acc.Rank):
			update = update.Set("rank", change.Rank)
			parts = append(parts, fmt.Sprintf("promoted to %s", change.Rank))
		default:
			update = update.Set("rank", change.Rank)
			parts = append(parts, fmt.Sprintf("demoted to %s", change.Rank))
			positive = false
		}
	}

	if len(parts) == 0 && change.Message == "" {
		return "", nil
	}

	message := change.Message
	if message == "" {
		message = "You have been " + joinParts(parts)
	}
	if change.Reason != "" {
		message = fmt.Sprintf("%s because %s", message, change.Reason)
	}

	update = update.AddToSet("serviceRecord", account.ServiceRecordEntry{
		Timestamp: s.now().UTC(),
		Occurence: message,
		Notes:     change.Notes,
	})
	if err := s.accounts.Data().Update(ctx, acc.ID, update); err != nil {
		return "", err
	}

	s.groupsChanged(ctx, acc.ID, "assignment")

	icon := IconPromotion
	if !positive {
		icon = IconDemotion
	}
	s.notify(ctx, acc.ID, icon, message)
	return message, nil
}

func (s *AssignmentService) moveUnit(ctx context.Context, acc *account.Account, target string) (string, error) {
	if acc.UnitAssignment != "" {
		if current, err := s.units.GetByName(ctx, acc.UnitAssignment); err == nil {
			if err := s.units.RemoveMember(ctx, acc.ID, current.ID); err != nil {
				return "", err
			}
		}
	}
	if target == Remove {
		return fmt.Sprintf("removed from %s", acc.UnitAssignment), nil
	}
	u, err := s.units.GetByName(ctx, target)
	if err != nil {
		return "", err
	}
	if err := s.units.AddMember(ctx, acc.ID, u.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("transferred to %s", u.Name), nil
}

// AssignUnitRole gives the account position roleName in the unit.
func (s *AssignmentService) AssignUnitRole(ctx context.Context, unitID, accountID, roleName string) error {
	u, err := s.units.GetSingle(ctx, unitID)
	if err != nil {
		return err
	}
	if err := s.units.SetMemberRole(ctx, accountID, unitID, roleName); err != nil {
		return err
	}
	s.groupsChanged(ctx, accountID, "unit role")
	s.notify(ctx, accountID, IconPromotion, fmt.Sprintf("You have been assigned as %s in %s", roleName, u.Name))
	return nil
}

// UnassignUnitRole vacates the account's position in the unit, if any, and
// returns its name.
func (s *AssignmentService) UnassignUnitRole(ctx context.Context, unitID, accountID string) (string, error) {
	u, err := s.units.GetSingle(ctx, unitID)
	if err != nil {
		return "", err
	}
	held, err := s.units.RemoveMemberRole(ctx, accountID, unitID)
	if err != nil || held == "" {
		return held, err
	}
	s.groupsChanged(ctx, accountID, "unit role")
	s.notify(ctx, accountID, IconDemotion, fmt.Sprintf("You have been unassigned as %s in %s", held, u.Name))
	return held, nil
}

func (s *AssignmentService) UnassignAllUnitRoles(ctx context.Context, accountID string) error {
	units, err := s.units.UnitsWithRoleHolder(ctx, accountID)
	if err != nil {
		return err
	}
	for _, u := range units {
		if _, err := s.UnassignUnitRole(ctx, u.ID, accountID); err != nil {
			return err
		}
	}
	return nil
}

// UnassignUnit removes the account from a unit along with its position there.
func (s *AssignmentService) UnassignUnit(ctx context.Context, unitID, accountID string) error {
	u, err := s.units.GetSingle(ctx, unitID)
	if err != nil {
		return err
	}
	if err := s.units.RemoveMember(ctx, accountID, unitID); err != nil {
		return err
	}
	s.groupsChanged(ctx, accountID, "unit membership")
	s.notify(ctx, accountID, IconDemotion, fmt.Sprintf("You have been removed from %s", u.Name))
	return nil
}

func (s *AssignmentService) UnassignAllUnits(ctx context.Context, accountID string) error {
	units, err := s.units.UnitsWithMember(ctx, accountID)
	if err != nil {
		return err
	}
	for _, u := range units {
		if err := s.units.RemoveMember(ctx, accountID, u.ID); err != nil {
			return err
		}
	}
	if len(units) > 0 {
		s.groupsChanged(ctx, accountID, "unit membership")
	}
	return nil
}

// AddAuxiliaryMembership adds the account to a non-combat unit without
// touching the combat assignment.
func (s *AssignmentService) AddAuxiliaryMembership(ctx context.Context, unitID, accountID string) error {
	u, err := s.units.GetSingle(ctx, unitID)
	if err != nil {
		return err
	}
	if u.Branch == unit.BranchCombat {
		return fmt.Errorf("unit %s is a combat unit", u.Name)
	}
	if err := s.units.AddMember(ctx, accountID, unitID); err != nil {
		return err
	}
	s.groupsChanged(ctx, accountID, "unit membership")
	s.notify(ctx, accountID, IconPromotion, fmt.Sprintf("You have been added to %s", u.Name))
	return nil
}

func (s *AssignmentService) groupsChanged(ctx context.Context, accountID, reason string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&account.GroupsChangedEvent{AccountID: accountID, Reason: reason})
}

// notify never fails the caller; the change is already persisted.
func (s *AssignmentService) notify(ctx context.Context, owner, icon, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, owner, icon, message, ""); err != nil {
		composables.UseLogger(ctx).WithError(err).WithFields(logrus.Fields{
			"component": "assignment",
			"account":   owner,
		}).Warn("failed to send notification")
	}
}

func article(word string) string {
	if word == "" {
		return word
	}
	switch strings.ToLower(word[:1]) {
	case "a", "e", "i", "o", "u":
		return "an " + word
	}
	return "a " + word
}

func joinParts(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
