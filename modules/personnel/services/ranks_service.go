package services

import (
	"cmp"
	"context"

	"github.com/uksf/uksf-api/modules/personnel/domain/rank"
	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	"github.com/uksf/uksf-api/pkg/datacontext"
)

type RanksService struct {
	ranks persistence.RanksContext
}

func NewRanksService(ranks persistence.RanksContext) *RanksService {
	return &RanksService{ranks: ranks}
}

func (s *RanksService) Data() persistence.RanksContext {
	return s.ranks
}

func (s *RanksService) GetByName(ctx context.Context, name string) (*rank.Rank, error) {
	r, err := s.ranks.FindSingle(ctx, datacontext.Eq[*rank.Rank]("name", name))
	if err != nil {
		return nil, notFound(err, ErrRankNotFound, "name %s", name)
	}
	return r, nil
}

// Compare orders senior ranks first. Unknown ranks sort last.
func (s *RanksService) Compare(ctx context.Context, name, other string) int {
	a, errA := s.GetByName(ctx, name)
	b, errB := s.GetByName(ctx, other)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	return Sort(a, b)
}

// Sort is the rank comparator: lower order is more senior and sorts first.
func Sort(a, b *rank.Rank) int {
	return cmp.Compare(a.Order, b.Order)
}

// IsSuperior reports whether name outranks other. Unknown ranks outrank
// nothing.
func (s *RanksService) IsSuperior(ctx context.Context, name, other string) bool {
	a, err := s.GetByName(ctx, name)
	if err != nil {
		return false
	}
	b, err := s.GetByName(ctx, other)
	if err != nil {
		return true
	}
	return a.Order < b.Order
}

func (s *RanksService) IsEqual(ctx context.Context, name, other string) bool {
	if name == other {
		return true
	}
	a, errA := s.GetByName(ctx, name)
	b, errB := s.GetByName(ctx, other)
	if errA != nil || errB != nil {
		return false
	}
	return a.Order == b.Order
}

func (s *RanksService) IsSuperiorOrEqual(ctx context.Context, name, other string) bool {
	return s.IsSuperior(ctx, name, other) || s.IsEqual(ctx, name, other)
}
