package services

import (
	"context"
	"errors"

	"github.com/uksf/uksf-api/modules/personnel/domain/discharge"
	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	"github.com/uksf/uksf-api/pkg/datacontext"
)

type DischargeService struct {
	discharges persistence.DischargesContext
}

func NewDischargeService(discharges persistence.DischargesContext) *DischargeService {
	return &DischargeService{discharges: discharges}
}

func (s *DischargeService) Data() persistence.DischargesContext {
	return s.discharges
}

func (s *DischargeService) GetByAccount(ctx context.Context, accountID string) (*discharge.Collection, error) {
	return s.discharges.FindSingle(ctx, datacontext.Eq[*discharge.Collection]("accountId", accountID))
}

// Record appends d to the account's history, creating the history on first
// discharge. A new discharge clears any earlier reinstatement.
func (s *DischargeService) Record(ctx context.Context, accountID, name string, d discharge.Discharge) error {
	existing, err := s.GetByAccount(ctx, accountID)
	if errors.Is(err, datacontext.ErrNotFound) {
		return s.discharges.Add(ctx, &discharge.Collection{
			AccountID:  accountID,
			Name:       name,
			Discharges: []discharge.Discharge{d},
		})
	}
	if err != nil {
		return err
	}
	return s.discharges.Update(ctx, existing.ID, datacontext.
		Set("reinstated", false).
		Set("name", name).
		AddToSet("discharges", d))
}

// Reinstate marks the account's history reinstated. Accounts never
// discharged have nothing to mark.
func (s *DischargeService) Reinstate(ctx context.Context, accountID string) error {
	return s.discharges.UpdateOne(ctx,
		datacontext.Eq[*discharge.Collection]("accountId", accountID),
		datacontext.Set("reinstated", true),
	)
}
