package services

import (
	"context"
	"time"

	"github.com/uksf/uksf-api/modules/personnel/domain/loa"
	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/serrors"
)

var ErrLoaDates = serrors.NewError("LOA_INVALID_DATES", "loa end must not be before its start", "")

type LoaService struct {
	loas persistence.LoasContext
	now  func() time.Time
}

func NewLoaService(loas persistence.LoasContext) *LoaService {
	return &LoaService{loas: loas, now: time.Now}
}

func (s *LoaService) Data() persistence.LoasContext {
	return s.loas
}

// Add stores a pending LOA and returns its id. An LOA whose start is less
// than a week away is flagged late.
func (s *LoaService) Add(ctx context.Context, l *loa.Loa) (string, error) {
	if l.End.Before(l.Start) {
		return "", ErrLoaDates
	}
	now := s.now().UTC()
	l.Submitted = now
	l.State = loa.Pending
	l.Late = l.Start.Before(now.AddDate(0, 0, 7))
	if err := s.loas.Add(ctx, l); err != nil {
		return "", err
	}
	return l.ID, nil
}

func (s *LoaService) SetLoaState(ctx context.Context, id string, state loa.State) error {
	return s.loas.Update(ctx, id, datacontext.Set("state", state))
}
