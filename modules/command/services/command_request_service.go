package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/command/domain/commandrequest"
	"github.com/uksf/uksf-api/modules/command/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	personnel "github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/datacontext"
)

// Auditor records an audit trail entry. Failures are the auditor's concern.
type Auditor interface {
	LogAudit(ctx context.Context, message, subjectID string)
}

// Resolver completes a request once its reviews allow it.
type Resolver interface {
	Resolve(ctx context.Context, id string) error
}

type CommandRequestService struct {
	contexts *persistence.Contexts
	accounts *personnel.AccountsService
	units    *personnel.UnitsService
	chain    *personnel.ChainOfCommandService
	notifier personnel.Notifier
	auditor  Auditor
	resolver Resolver
	now      func() time.Time
}

func NewCommandRequestService(
	contexts *persistence.Contexts,
	accounts *personnel.AccountsService,
	units *personnel.UnitsService,
	chain *personnel.ChainOfCommandService,
	notifier personnel.Notifier,
	auditor Auditor,
) *CommandRequestService {
	return &CommandRequestService{
		contexts: contexts,
		accounts: accounts,
		units:    units,
		chain:    chain,
		notifier: notifier,
		auditor:  auditor,
		now:      time.Now,
	}
}

// UseResolver sets the completion step run by UpdateReview.
func (s *CommandRequestService) UseResolver(r Resolver) {
	s.resolver = r
}

func (s *CommandRequestService) Data() persistence.RequestsContext {
	return s.contexts.Requests
}

func (s *CommandRequestService) Archive() persistence.ArchiveContext {
	return s.contexts.Archive
}

func (s *CommandRequestService) GetSingle(ctx context.Context, id string) (*commandrequest.CommandRequest, error) {
	r, err := s.contexts.Requests.GetSingle(ctx, id)
	if errors.Is(err, datacontext.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	return r, err
}

// Add resolves reviewers starting from the recipient's combat unit, with
// the unit named by Value as the target when there is one.
func (s *CommandRequestService) Add(ctx context.Context, req *commandrequest.CommandRequest, mode personnel.ChainOfCommandMode) error {
	recipient, err := s.accounts.GetSingle(ctx, req.Recipient)
	if err != nil {
		return err
	}
	var start, target *unit.Unit
	if recipient.UnitAssignment != "" {
		if start, err = s.units.GetByName(ctx, recipient.UnitAssignment); err != nil && !errors.Is(err, personnel.ErrUnitNotFound) {
			return err
		}
	}
	if req.Value != "" && datacontext.IsObjectID(req.Value) {
		if target, err = s.units.GetSingle(ctx, req.Value); err != nil && !errors.Is(err, personnel.ErrUnitNotFound) {
			return err
		}
	}
	return s.AddWithUnits(ctx, req, mode, start, target)
}

// AddWithUnits creates the request with reviewers resolved from start and
// target. Nothing is stored when no reviewer can be found.
func (s *CommandRequestService) AddWithUnits(
	ctx context.Context,
	req *commandrequest.CommandRequest,
	mode personnel.ChainOfCommandMode,
	start, target *unit.Unit,
) error {
	if req.Requester == "" {
		actor, err := composables.UseActor(ctx)
		if err != nil {
			return newServiceError(http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", err)
		}
		req.Requester = actor
	}

	chain, err := s.chain.ResolveChain(ctx, mode, req.Recipient, start, target)
	if err != nil {
		return err
	}
	if chain.Len() == 0 {
		return errNoReviewers()
	}
	reviewers, err := s.accounts.OrderByRank(ctx, chain.IDs())
	if err != nil {
		return err
	}

	req.Reviewers = reviewers
	req.Reviews = make(map[string]commandrequest.ReviewState, len(reviewers))
	for _, id := range reviewers {
		req.Reviews[id] = commandrequest.Pending
	}
	req.DateCreated = s.now().UTC()
	req.DisplayRequester = s.accounts.DisplayNameByID(ctx, req.Requester)
	req.DisplayRecipient = s.accounts.DisplayNameByID(ctx, req.Recipient)

	if err := s.contexts.Requests.Add(ctx, req); err != nil {
		return err
	}
	recordCreated(string(req.Type))

	s.audit(ctx, fmt.Sprintf("%s request created for %s from %s to %s because '%s'",
		req.Type, req.DisplayRecipient, req.DisplayFrom, req.DisplayValue, req.Reason), req.Recipient)

	for _, reviewer := range reviewers {
		if reviewer == req.Requester {
			continue
		}
		s.notify(ctx, reviewer, personnel.IconRequest,
			fmt.Sprintf("Your review is required for %s's %s request", req.DisplayRecipient, req.Type),
			"/command/requests")
	}
	return nil
}

// ArchiveRequest copies the request into the archive and removes it from
// the live store. An archive copy left by an earlier failed attempt is
// replaced.
func (s *CommandRequestService) ArchiveRequest(ctx context.Context, id string) error {
	req, err := s.GetSingle(ctx, id)
	if err != nil {
		return err
	}
	archived := commandrequest.NewArchived(req)
	_, err = s.contexts.Archive.GetSingle(ctx, id)
	switch {
	case err == nil:
		err = s.contexts.Archive.Replace(ctx, archived)
	case errors.Is(err, datacontext.ErrNotFound):
		err = s.contexts.Archive.Add(ctx, archived)
	}
	if err != nil {
		return err
	}
	return s.contexts.Requests.DeleteByID(ctx, id)
}

func reviewPath(reviewerID string) string {
	return "reviews." + reviewerID
}

// SetRequestReviewState changes one reviewer's entry.
func (s *CommandRequestService) SetRequestReviewState(ctx context.Context, id, reviewerID string, state commandrequest.ReviewState) error {
	req, err := s.GetSingle(ctx, id)
	if err != nil {
		return err
	}
	if !req.HasReviewer(reviewerID) {
		return newServiceError(http.StatusForbidden, "COMMAND_NOT_A_REVIEWER", "You are not a reviewer of this request", nil)
	}
	return s.contexts.Requests.Update(ctx, id, datacontext.Set(reviewPath(reviewerID), state))
}

// SetRequestAllReviewStates sets every entry to state in one update.
func (s *CommandRequestService) SetRequestAllReviewStates(ctx context.Context, id string, state commandrequest.ReviewState) error {
	req, err := s.GetSingle(ctx, id)
	if err != nil {
		return err
	}
	var update datacontext.Update
	for reviewer := range req.Reviews {
		update = update.Set(reviewPath(reviewer), state)
	}
	if update.IsEmpty() {
		return nil
	}
	return s.contexts.Requests.Update(ctx, id, update)
}

func (s *CommandRequestService) GetReviewState(ctx context.Context, id, reviewerID string) (commandrequest.ReviewState, error) {
	req, err := s.GetSingle(ctx, id)
	if err != nil {
		return commandrequest.Error, err
	}
	return req.ReviewState(reviewerID), nil
}

func (s *CommandRequestService) IsRequestApproved(ctx context.Context, id string) (bool, error) {
	req, err := s.GetSingle(ctx, id)
	if err != nil {
		return false, err
	}
	return req.IsApproved(), nil
}

func (s *CommandRequestService) IsRequestRejected(ctx context.Context, id string) (bool, error) {
	req, err := s.GetSingle(ctx, id)
	if err != nil {
		return false, err
	}
	return req.IsRejected(), nil
}

// DoesEquivalentRequestExist looks for a live request with the same
// recipient, type, value and from value.
func (s *CommandRequestService) DoesEquivalentRequestExist(ctx context.Context, req *commandrequest.CommandRequest) (bool, error) {
	matches, err := s.contexts.Requests.Find(ctx, datacontext.Eq[*commandrequest.CommandRequest]("recipient", req.Recipient).And(
		datacontext.Eq[*commandrequest.CommandRequest]("type", req.Type),
		datacontext.Eq[*commandrequest.CommandRequest]("value", req.Value),
		datacontext.Eq[*commandrequest.CommandRequest]("displayFrom", req.DisplayFrom),
	))
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// UpdateReview records the actor's review, or every review when overridden,
// and resolves the request. A failed resolution puts the changed reviews
// back to Pending before the error is returned.
func (s *CommandRequestService) UpdateReview(ctx context.Context, id string, state commandrequest.ReviewState, overridden bool) error {
	if !state.IsValid() {
		return newServiceError(http.StatusBadRequest, "COMMAND_INVALID_REVIEW_STATE", fmt.Sprintf("invalid review state %q", state), nil)
	}
	actor, err := composables.UseActor(ctx)
	if err != nil {
		return newServiceError(http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", err)
	}
	if overridden {
		if err := s.authorizeOverride(ctx, id, actor); err != nil {
			return err
		}
	}

	apply := func(state commandrequest.ReviewState) error {
		if overridden {
			return s.SetRequestAllReviewStates(ctx, id, state)
		}
		return s.SetRequestReviewState(ctx, id, actor, state)
	}
	if err := apply(state); err != nil {
		return err
	}

	req, err := s.GetSingle(ctx, id)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("%s request for %s review set to %s by %s", req.Type, req.DisplayRecipient, state, s.accounts.DisplayNameByID(ctx, actor))
	if overridden {
		message = fmt.Sprintf("%s request for %s overridden to %s by %s", req.Type, req.DisplayRecipient, state, s.accounts.DisplayNameByID(ctx, actor))
	}
	s.audit(ctx, message, req.Recipient)

	if s.resolver == nil {
		return nil
	}
	if resolveErr := s.resolver.Resolve(ctx, id); resolveErr != nil {
		reviewRollbacks.Inc()
		if rollbackErr := apply(commandrequest.Pending); rollbackErr != nil {
			composables.UseLogger(ctx).WithError(rollbackErr).WithFields(logrus.Fields{
				"component": "command",
				"request":   id,
			}).Error("failed to roll back review after resolution failure")
			return errors.Join(resolveErr, rollbackErr)
		}
		return resolveErr
	}
	return nil
}

// authorizeOverride allows personnel members to override requests they are
// not the recipient of.
func (s *CommandRequestService) authorizeOverride(ctx context.Context, id, actor string) error {
	req, err := s.GetSingle(ctx, id)
	if err != nil {
		return err
	}
	allowed, err := s.chain.IsPersonnelMember(ctx, actor)
	if err != nil {
		return err
	}
	if !allowed || actor == req.Recipient {
		return errOverrideForbidden()
	}
	return nil
}

func (s *CommandRequestService) audit(ctx context.Context, message, subjectID string) {
	if s.auditor != nil {
		s.auditor.LogAudit(ctx, message, subjectID)
	}
}

func (s *CommandRequestService) notify(ctx context.Context, owner, icon, message, link string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, owner, icon, message, link); err != nil {
		composables.UseLogger(ctx).WithError(err).WithField("component", "command").Warn("failed to send notification")
	}
}
