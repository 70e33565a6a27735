package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/uksf/uksf-api/modules/command/domain/commandrequest"
	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/domain/loa"
	"github.com/uksf/uksf-api/modules/personnel/domain/role"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	personnel "github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/composables"
)

const dateLayout = "2006-01-02"

// CreationService builds each kind of request, applies its business rules
// and picks the chain of command mode used to find reviewers.
type CreationService struct {
	requests *CommandRequestService
	accounts *personnel.AccountsService
	units    *personnel.UnitsService
	ranks    *personnel.RanksService
	loas     *personnel.LoaService
}

func NewCreationService(
	requests *CommandRequestService,
	accounts *personnel.AccountsService,
	units *personnel.UnitsService,
	ranks *personnel.RanksService,
	loas *personnel.LoaService,
) *CreationService {
	return &CreationService{
		requests: requests,
		accounts: accounts,
		units:    units,
		ranks:    ranks,
		loas:     loas,
	}
}

type RequestInput struct {
	Recipient      string
	Value          string
	SecondaryValue string
	Reason         string
}

type LoaInput struct {
	Start     time.Time
	End       time.Time
	Reason    string
	Emergency bool
	Late      bool
}

func errEqual(message string) *ServiceError {
	return newServiceError(http.StatusBadRequest, "COMMAND_NO_CHANGE", message, nil)
}

func (s *CreationService) requester(ctx context.Context) (string, error) {
	actor, err := composables.UseActor(ctx)
	if err != nil {
		return "", newServiceError(http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", err)
	}
	return actor, nil
}

func (s *CreationService) submit(ctx context.Context, req *commandrequest.CommandRequest, mode personnel.ChainOfCommandMode, start, target *unit.Unit) (*commandrequest.CommandRequest, error) {
	exists, err := s.requests.DoesEquivalentRequestExist(ctx, req)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errDuplicateRequest()
	}
	if start == nil && target == nil {
		err = s.requests.Add(ctx, req, mode)
	} else {
		err = s.requests.AddWithUnits(ctx, req, mode, start, target)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *CreationService) recipientUnit(ctx context.Context, acc *account.Account) (*unit.Unit, error) {
	if acc.UnitAssignment == "" {
		return nil, newServiceError(http.StatusBadRequest, "COMMAND_NO_UNIT", fmt.Sprintf("%s is not assigned to a unit", acc.FullName()), nil)
	}
	return s.units.GetByName(ctx, acc.UnitAssignment)
}

// CreateRank requests a promotion or demotion to input.Value.
func (s *CreationService) CreateRank(ctx context.Context, input RequestInput) (*commandrequest.CommandRequest, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetSingle(ctx, input.Recipient)
	if err != nil {
		return nil, err
	}
	if _, err := s.ranks.GetByName(ctx, input.Value); err != nil {
		return nil, newServiceError(http.StatusBadRequest, "COMMAND_UNKNOWN_RANK", fmt.Sprintf("unknown rank %s", input.Value), err)
	}
	if s.ranks.IsEqual(ctx, input.Value, acc.Rank) {
		return nil, errEqual("Ranks are equal")
	}
	requestType := commandrequest.Demotion
	if s.ranks.IsSuperior(ctx, input.Value, acc.Rank) {
		requestType = commandrequest.Promotion
	}
	return s.submit(ctx, &commandrequest.CommandRequest{
		Type:         requestType,
		Recipient:    acc.ID,
		Requester:    requester,
		Value:        input.Value,
		DisplayValue: input.Value,
		DisplayFrom:  displayOrNone(acc.Rank),
		Reason:       input.Reason,
	}, personnel.ModeCommanderAndOneAbove, nil, nil)
}

// CreateLoa stores a pending LOA for the actor and requests its approval
// from the next commander who is not the actor.
func (s *CreationService) CreateLoa(ctx context.Context, input LoaInput) (*commandrequest.CommandRequest, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetSingle(ctx, requester); err != nil {
		return nil, err
	}
	id, err := s.loas.Add(ctx, &loa.Loa{
		Recipient: requester,
		Start:     input.Start,
		End:       input.End,
		Reason:    input.Reason,
		Emergency: input.Emergency,
		Late:      input.Late,
	})
	if err != nil {
		return nil, newServiceError(http.StatusBadRequest, "COMMAND_INVALID_LOA", err.Error(), err)
	}
	from := "Normal"
	if input.Emergency {
		from = "Emergency"
	}
	req, err := s.submit(ctx, &commandrequest.CommandRequest{
		Type:         commandrequest.Loa,
		Recipient:    requester,
		Requester:    requester,
		Value:        id,
		DisplayValue: fmt.Sprintf("%s - %s", input.Start.Format(dateLayout), input.End.Format(dateLayout)),
		DisplayFrom:  from,
		Reason:       input.Reason,
	}, personnel.ModeNextCommanderExcludeSelf, nil, nil)
	if err != nil {
		// the loa only exists for its request
		if delErr := s.loas.Data().DeleteByID(ctx, id); delErr != nil {
			composables.UseLogger(ctx).WithError(delErr).WithField("loa", id).Warn("failed to remove loa of rejected request")
		}
		return nil, err
	}
	return req, nil
}

func (s *CreationService) CreateDischarge(ctx context.Context, input RequestInput) (*commandrequest.CommandRequest, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetSingle(ctx, input.Recipient)
	if err != nil {
		return nil, err
	}
	if acc.MembershipState == account.Discharged {
		return nil, errEqual("Member is already discharged")
	}
	return s.submit(ctx, &commandrequest.CommandRequest{
		Type:         commandrequest.Discharge,
		Recipient:    acc.ID,
		Requester:    requester,
		Value:        string(account.Discharged),
		DisplayValue: string(account.Discharged),
		DisplayFrom:  string(acc.MembershipState),
		Reason:       input.Reason,
	}, personnel.ModeCommanderAndPersonnel, nil, nil)
}

// CreateIndividualRole requests role input.Value, or its removal with None.
func (s *CreationService) CreateIndividualRole(ctx context.Context, input RequestInput) (*commandrequest.CommandRequest, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetSingle(ctx, input.Recipient)
	if err != nil {
		return nil, err
	}
	from := displayOrNone(acc.RoleAssignment)
	if from == input.Value {
		return nil, errEqual("Roles are equal")
	}
	return s.submit(ctx, &commandrequest.CommandRequest{
		Type:         commandrequest.IndividualRole,
		Recipient:    acc.ID,
		Requester:    requester,
		Value:        input.Value,
		DisplayValue: input.Value,
		DisplayFrom:  from,
		Reason:       input.Reason,
	}, personnel.ModeCommanderAndOneAbove, nil, nil)
}

// CreateUnitRole requests position input.SecondaryValue in unit
// input.Value. SecondaryValue None removes the position, from every unit
// when Value is empty.
func (s *CreationService) CreateUnitRole(ctx context.Context, input RequestInput) (*commandrequest.CommandRequest, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetSingle(ctx, input.Recipient)
	if err != nil {
		return nil, err
	}

	req := &commandrequest.CommandRequest{
		Type:           commandrequest.UnitRole,
		Recipient:      acc.ID,
		Requester:      requester,
		Value:          input.Value,
		SecondaryValue: input.SecondaryValue,
		Reason:         input.Reason,
	}

	if input.Value == "" {
		if input.SecondaryValue != role.None {
			return nil, newServiceError(http.StatusBadRequest, "COMMAND_UNIT_REQUIRED", "A unit is required to assign a position", nil)
		}
		req.DisplayValue = "Remove all positions"
		req.DisplayFrom = "Positions"
		start, err := s.recipientUnit(ctx, acc)
		if err != nil {
			return nil, err
		}
		return s.submit(ctx, req, personnel.ModeCommanderAndOneAbove, start, nil)
	}

	target, err := s.units.GetSingle(ctx, input.Value)
	if err != nil {
		return nil, err
	}
	held, _ := target.RoleOf(acc.ID)
	if input.SecondaryValue == role.None {
		if held == "" {
			return nil, errEqual(fmt.Sprintf("%s holds no position in %s", acc.FullName(), target.Name))
		}
		req.DisplayValue = fmt.Sprintf("Remove %s from %s", held, target.Name)
		req.DisplayFrom = held
	} else {
		if held == input.SecondaryValue {
			return nil, errEqual("Positions are equal")
		}
		req.DisplayValue = fmt.Sprintf("%s of %s", input.SecondaryValue, target.Name)
		req.DisplayFrom = displayOrNone(held)
	}
	return s.submit(ctx, req, personnel.ModeCommanderAndOneAbove, target, nil)
}

// CreateUnitRemoval requests removal from a non combat unit; combat units
// are left through a transfer.
func (s *CreationService) CreateUnitRemoval(ctx context.Context, input RequestInput) (*commandrequest.CommandRequest, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetSingle(ctx, input.Recipient)
	if err != nil {
		return nil, err
	}
	target, err := s.units.GetSingle(ctx, input.Value)
	if err != nil {
		return nil, err
	}
	if target.Branch == unit.BranchCombat {
		return nil, newServiceError(http.StatusBadRequest, "COMMAND_COMBAT_UNIT_REMOVAL",
			"To remove from a combat unit, use a Transfer request instead", nil)
	}
	if !target.HasMember(acc.ID) {
		return nil, errEqual(fmt.Sprintf("%s is not a member of %s", acc.FullName(), target.Name))
	}
	return s.submit(ctx, &commandrequest.CommandRequest{
		Type:         commandrequest.UnitRemoval,
		Recipient:    acc.ID,
		Requester:    requester,
		Value:        target.ID,
		DisplayValue: "N/A",
		DisplayFrom:  target.Name,
		Reason:       input.Reason,
	}, personnel.ModeTargetCommander, nil, target)
}

// CreateTransfer requests a move into unit input.Value. Auxiliary targets
// only add membership and are reviewed by the target's commander.
func (s *CreationService) CreateTransfer(ctx context.Context, input RequestInput) (*commandrequest.CommandRequest, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetSingle(ctx, input.Recipient)
	if err != nil {
		return nil, err
	}
	target, err := s.units.GetSingle(ctx, input.Value)
	if err != nil {
		return nil, err
	}

	if target.Branch != unit.BranchCombat {
		if target.HasMember(acc.ID) {
			return nil, errEqual(fmt.Sprintf("%s is already a member of %s", acc.FullName(), target.Name))
		}
		return s.submit(ctx, &commandrequest.CommandRequest{
			Type:         commandrequest.AuxiliaryTransfer,
			Recipient:    acc.ID,
			Requester:    requester,
			Value:        target.ID,
			DisplayValue: target.Name,
			DisplayFrom:  "N/A",
			Reason:       input.Reason,
		}, personnel.ModeTargetCommander, nil, target)
	}

	if acc.UnitAssignment == target.Name {
		return nil, errEqual("Units are equal")
	}
	var start *unit.Unit
	if acc.UnitAssignment != "" {
		if start, err = s.units.GetByName(ctx, acc.UnitAssignment); err != nil {
			return nil, err
		}
	}
	return s.submit(ctx, &commandrequest.CommandRequest{
		Type:         commandrequest.Transfer,
		Recipient:    acc.ID,
		Requester:    requester,
		Value:        target.ID,
		DisplayValue: target.Name,
		DisplayFrom:  displayOrNone(acc.UnitAssignment),
		Reason:       input.Reason,
	}, personnel.ModeCommanderAndTargetCommander, start, target)
}

func (s *CreationService) CreateReinstateMember(ctx context.Context, input RequestInput) (*commandrequest.CommandRequest, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := s.accounts.GetSingle(ctx, input.Recipient)
	if err != nil {
		return nil, err
	}
	if acc.MembershipState != account.Discharged {
		return nil, errEqual("Only discharged members can be reinstated")
	}
	return s.submit(ctx, &commandrequest.CommandRequest{
		Type:         commandrequest.ReinstateMember,
		Recipient:    acc.ID,
		Requester:    requester,
		Value:        string(account.Member),
		DisplayValue: string(account.Member),
		DisplayFrom:  string(account.Discharged),
		Reason:       input.Reason,
	}, personnel.ModePersonnel, nil, nil)
}

func displayOrNone(value string) string {
	if value == "" {
		return role.None
	}
	return value
}
