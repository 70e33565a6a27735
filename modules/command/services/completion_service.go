package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/command/domain/commandrequest"
	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/domain/discharge"
	"github.com/uksf/uksf-api/modules/personnel/domain/loa"
	"github.com/uksf/uksf-api/modules/personnel/domain/rank"
	"github.com/uksf/uksf-api/modules/personnel/domain/role"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	personnel "github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/datacontext"
)

// MethodRequestUpdate tells clients to re-read request review state.
const MethodRequestUpdate = "ReceiveRequestUpdate"

// Broadcaster pushes a message to every client on a channel.
type Broadcaster interface {
	Broadcast(channel, method string, payload any) error
}

type CompletionOptions struct {
	Channel          string
	TrainingUnitName string
}

type completionHandler func(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error

// CompletionService applies the outcome of fully reviewed requests.
type CompletionService struct {
	requests    *CommandRequestService
	accounts    *personnel.AccountsService
	units       *personnel.UnitsService
	assignment  *personnel.AssignmentService
	loas        *personnel.LoaService
	discharges  *personnel.DischargeService
	broadcaster Broadcaster
	opts        CompletionOptions
	handlers    map[commandrequest.Type]completionHandler
	now         func() time.Time
}

func NewCompletionService(
	requests *CommandRequestService,
	accounts *personnel.AccountsService,
	units *personnel.UnitsService,
	assignment *personnel.AssignmentService,
	loas *personnel.LoaService,
	discharges *personnel.DischargeService,
	broadcaster Broadcaster,
	opts CompletionOptions,
) *CompletionService {
	s := &CompletionService{
		requests:    requests,
		accounts:    accounts,
		units:       units,
		assignment:  assignment,
		loas:        loas,
		discharges:  discharges,
		broadcaster: broadcaster,
		opts:        opts,
		now:         time.Now,
	}
	s.handlers = map[commandrequest.Type]completionHandler{
		commandrequest.Promotion:         s.rank,
		commandrequest.Demotion:          s.rank,
		commandrequest.Loa:               s.loa,
		commandrequest.Discharge:         s.discharge,
		commandrequest.IndividualRole:    s.individualRole,
		commandrequest.UnitRole:          s.unitRole,
		commandrequest.Transfer:          s.transfer,
		commandrequest.AuxiliaryTransfer: s.transfer,
		commandrequest.UnitRemoval:       s.unitRemoval,
		commandrequest.ReinstateMember:   s.reinstate,
	}
	requests.UseResolver(s)
	return s
}

// Resolve completes the request when it is approved or rejected and is a
// no-op otherwise. Requests already archived are not found and count as
// resolved. Clients are told to refresh whatever the outcome.
func (s *CompletionService) Resolve(ctx context.Context, id string) error {
	defer s.broadcastUpdate(ctx)

	req, err := s.requests.GetSingle(ctx, id)
	if errors.Is(err, ErrRequestNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var approved bool
	switch {
	case req.IsApproved():
		approved = true
	case req.IsRejected():
		approved = false
	default:
		return nil
	}

	handler, ok := s.handlers[req.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRequestType, req.Type)
	}
	if err := handler(ctx, req, approved); err != nil {
		return err
	}
	recordResolved(string(req.Type), approved)
	return nil
}

func (s *CompletionService) broadcastUpdate(ctx context.Context) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(s.opts.Channel, MethodRequestUpdate, nil); err != nil {
		composables.UseLogger(ctx).WithError(err).WithField("component", "command").Warn("failed to broadcast request update")
	}
}

// finish archives the request and records the outcome.
func (s *CompletionService) finish(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	if err := s.requests.ArchiveRequest(ctx, req.ID); err != nil {
		return err
	}
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	s.requests.audit(ctx, fmt.Sprintf("%s request %s for %s from %s to %s",
		req.Type, outcome, req.DisplayRecipient, req.DisplayFrom, req.DisplayValue), req.Recipient)
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"component": "command",
		"request":   req.ID,
		"type":      req.Type,
		"outcome":   outcome,
	}).Info("command request resolved")
	if req.Requester != req.Recipient {
		s.requests.notify(ctx, req.Requester, personnel.IconRequest,
			fmt.Sprintf("Your %s request for %s was %s", req.Type, req.DisplayRecipient, outcome), "")
	}
	return nil
}

func (s *CompletionService) rank(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	if approved {
		acc, err := s.accounts.GetSingle(ctx, req.Recipient)
		if err != nil {
			return err
		}
		change := personnel.AssignmentChange{
			AccountID: req.Recipient,
			Rank:      req.Value,
			Reason:    req.Reason,
		}
		if acc.Rank == rank.Recruit && req.Value == rank.Private && acc.RoleAssignment == role.Trainee {
			change.Role = role.Rifleman
		}
		if _, err := s.assignment.UpdateUnitRankAndRole(ctx, change); err != nil {
			return err
		}
	}
	return s.finish(ctx, req, approved)
}

// loa flips the LOA to the outcome; the LOA only exists for this request.
func (s *CompletionService) loa(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	state := loa.Rejected
	if approved {
		state = loa.Approved
	}
	if err := s.loas.SetLoaState(ctx, req.Value, state); err != nil {
		return err
	}
	return s.finish(ctx, req, approved)
}

func (s *CompletionService) discharge(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	if approved {
		acc, err := s.accounts.GetSingle(ctx, req.Recipient)
		if err != nil {
			return err
		}
		record := discharge.Discharge{
			Timestamp:    s.now().UTC(),
			Rank:         acc.Rank,
			Unit:         acc.UnitAssignment,
			Role:         acc.RoleAssignment,
			DischargedBy: req.DisplayRequester,
			Reason:       req.Reason,
			RequestID:    req.ID,
		}
		if err := s.discharges.Record(ctx, acc.ID, acc.FullName(), record); err != nil {
			return err
		}
		if err := s.accounts.Data().Update(ctx, acc.ID, datacontext.
			Set("membershipState", account.Discharged).
			Set("rank", "").
			Set("unitAssignment", "").
			Set("roleAssignment", ""),
		); err != nil {
			return err
		}
		if err := s.assignment.UnassignAllUnitRoles(ctx, acc.ID); err != nil {
			return err
		}
		if err := s.assignment.UnassignAllUnits(ctx, acc.ID); err != nil {
			return err
		}
	}
	return s.finish(ctx, req, approved)
}

func (s *CompletionService) individualRole(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	if approved {
		roleName := req.Value
		if roleName == role.None {
			roleName = personnel.Remove
		}
		if _, err := s.assignment.UpdateUnitRankAndRole(ctx, personnel.AssignmentChange{
			AccountID: req.Recipient,
			Role:      roleName,
			Reason:    req.Reason,
		}); err != nil {
			return err
		}
	}
	return s.finish(ctx, req, approved)
}

// unitRole assigns SecondaryValue in unit Value. SecondaryValue None
// unassigns the position held in Value, or every position when Value is
// empty.
func (s *CompletionService) unitRole(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	if approved {
		var err error
		switch {
		case req.SecondaryValue != role.None:
			err = s.assignment.AssignUnitRole(ctx, req.Value, req.Recipient, req.SecondaryValue)
		case req.Value == "":
			err = s.assignment.UnassignAllUnitRoles(ctx, req.Recipient)
		default:
			_, err = s.assignment.UnassignUnitRole(ctx, req.Value, req.Recipient)
		}
		if err != nil {
			return err
		}
	}
	return s.finish(ctx, req, approved)
}

// transfer moves the combat assignment, or for auxiliary units only adds
// membership.
func (s *CompletionService) transfer(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	if approved {
		target, err := s.units.GetSingle(ctx, req.Value)
		if err != nil {
			return err
		}
		if req.Type == commandrequest.AuxiliaryTransfer || target.Branch != unit.BranchCombat {
			err = s.assignment.AddAuxiliaryMembership(ctx, target.ID, req.Recipient)
		} else {
			_, err = s.assignment.UpdateUnitRankAndRole(ctx, personnel.AssignmentChange{
				AccountID: req.Recipient,
				Unit:      target.Name,
				Reason:    req.Reason,
			})
		}
		if err != nil {
			return err
		}
	}
	return s.finish(ctx, req, approved)
}

func (s *CompletionService) unitRemoval(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	if approved {
		if err := s.assignment.UnassignUnit(ctx, req.Value, req.Recipient); err != nil {
			return err
		}
	}
	return s.finish(ctx, req, approved)
}

// reinstate returns a discharged account to the training unit as a recruit.
func (s *CompletionService) reinstate(ctx context.Context, req *commandrequest.CommandRequest, approved bool) error {
	if approved {
		if err := s.discharges.Reinstate(ctx, req.Recipient); err != nil {
			return err
		}
		if err := s.accounts.Data().Update(ctx, req.Recipient, datacontext.Set("membershipState", account.Member)); err != nil {
			return err
		}
		if _, err := s.assignment.UpdateUnitRankAndRole(ctx, personnel.AssignmentChange{
			AccountID: req.Recipient,
			Unit:      s.opts.TrainingUnitName,
			Role:      role.Trainee,
			Rank:      rank.Recruit,
			Reason:    "your membership was reinstated",
		}); err != nil {
			return err
		}
	}
	return s.finish(ctx, req, approved)
}
