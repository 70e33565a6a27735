package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
)

type AccountsService struct {
	accounts persistence.AccountsContext
	ranks    *RanksService
}

func NewAccountsService(accounts persistence.AccountsContext, ranks *RanksService) *AccountsService {
	return &AccountsService{accounts: accounts, ranks: ranks}
}

func (s *AccountsService) Data() persistence.AccountsContext {
	return s.accounts
}

func (s *AccountsService) GetSingle(ctx context.Context, id string) (*account.Account, error) {
	a, err := s.accounts.GetSingle(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound, "id %s", id)
	}
	return a, nil
}

// DisplayName renders "<rank abbreviation>.<Lastname>.<F>", dropping the
// rank part when the account has none.
func (s *AccountsService) DisplayName(ctx context.Context, a *account.Account) string {
	initial := ""
	if a.Firstname != "" {
		initial = strings.ToUpper(string([]rune(a.Firstname)[:1]))
	}
	name := fmt.Sprintf("%s.%s", a.Lastname, initial)
	if a.Rank == "" {
		return name
	}
	r, err := s.ranks.GetByName(ctx, a.Rank)
	if err != nil || r.Abbreviation == "" {
		return name
	}
	return r.Abbreviation + "." + name
}

// DisplayNameByID falls back to the id when the account is unknown.
func (s *AccountsService) DisplayNameByID(ctx context.Context, id string) string {
	a, err := s.GetSingle(ctx, id)
	if err != nil {
		return id
	}
	return s.DisplayName(ctx, a)
}

// OrderByRank sorts account ids by rank seniority, then surname, then first
// name. Unknown ids go last in their given order.
func (s *AccountsService) OrderByRank(ctx context.Context, ids []string) ([]string, error) {
	known := make([]*account.Account, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		a, err := s.accounts.GetSingle(ctx, id)
		if err != nil {
			unknown = append(unknown, id)
			continue
		}
		known = append(known, a)
	}
	slices.SortStableFunc(known, func(a, b *account.Account) int {
		if c := s.ranks.Compare(ctx, a.Rank, b.Rank); c != 0 {
			return c
		}
		if c := strings.Compare(a.Lastname, b.Lastname); c != 0 {
			return c
		}
		return strings.Compare(a.Firstname, b.Firstname)
	})
	out := make([]string, 0, len(ids))
	for _, a := range known {
		out = append(out, a.ID)
	}
	return append(out, unknown...), nil
}
