package services_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/domain/rank"
	"github.com/uksf/uksf-api/modules/personnel/domain/role"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/datacontext/memory"
	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/features"
	"github.com/uksf/uksf-api/pkg/logging"
)

type sentNotification struct {
	Owner   string
	Icon    string
	Message string
}

type notifierStub struct {
	sent []sentNotification
}

func (n *notifierStub) Notify(_ context.Context, owner, icon, message, _ string) error {
	n.sent = append(n.sent, sentNotification{Owner: owner, Icon: icon, Message: message})
	return nil
}

type fixture struct {
	contexts   *persistence.Contexts
	bus        eventbus.EventBus
	notifier   *notifierStub
	units      *services.UnitsService
	ranks      *services.RanksService
	accounts   *services.AccountsService
	chain      *services.ChainOfCommandService
	assignment *services.AssignmentService
	loas       *services.LoaService
	discharges *services.DischargeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.ConsoleLogger(logrus.ErrorLevel)
	bus := eventbus.NewEventPublisher(log)
	contexts := persistence.NewContexts(memory.New(), bus, features.NewStatic(features.UseMemoryDataCache), log)
	notifier := &notifierStub{}

	ranks := services.NewRanksService(contexts.Ranks)
	units := services.NewUnitsService(contexts.Units, contexts.Roles)
	accounts := services.NewAccountsService(contexts.Accounts, ranks)
	return &fixture{
		contexts:   contexts,
		bus:        bus,
		notifier:   notifier,
		units:      units,
		ranks:      ranks,
		accounts:   accounts,
		chain:      services.NewChainOfCommandService(units, "SR7"),
		assignment: services.NewAssignmentService(accounts, units, ranks, notifier, bus),
		loas:       services.NewLoaService(contexts.Loas),
		discharges: services.NewDischargeService(contexts.Discharges),
	}
}

// Unit ids of the standard tree:
//
//	uksf (Combat root, 1iC cmdRoot)
//	├── sfsg (1iC cmdSFSG, 2iC sfsg2)
//	│   └── section (no positions, member rifleman)
//	└── jsfaw (no positions)
//	sr7 (Auxiliary root, shortname SR7, members p1 p2)
const (
	uksfID    = "000000000000000000000001"
	sfsgID    = "000000000000000000000002"
	sectionID = "000000000000000000000003"
	jsfawID   = "000000000000000000000004"
	sr7ID     = "000000000000000000000005"
)

func (f *fixture) seedTree(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i, name := range []string{unit.Commander, unit.SecondInCommand, unit.ThirdInCommand, unit.NCOiC} {
		require.NoError(t, f.contexts.Roles.Add(ctx, &role.Role{Name: name, Order: i, RoleType: role.UnitRole}))
	}
	require.NoError(t, f.contexts.Roles.Add(ctx, &role.Role{Name: role.Rifleman, Order: 10, RoleType: role.Individual}))

	units := []*unit.Unit{
		{Base: datacontext.Base{ID: uksfID}, Name: "UKSF", Shortname: "UKSF", Branch: unit.BranchCombat, Order: 0,
			Members: []string{"cmdRoot"}, Roles: map[string]string{unit.Commander: "cmdRoot"}},
		{Base: datacontext.Base{ID: sfsgID}, Name: "SFSG", Shortname: "SFSG", Parent: uksfID, Branch: unit.BranchCombat, Order: 1,
			Members: []string{"cmdSFSG", "sfsg2"}, Roles: map[string]string{unit.Commander: "cmdSFSG", unit.SecondInCommand: "sfsg2"}},
		{Base: datacontext.Base{ID: sectionID}, Name: "1 Section", Shortname: "1S", Parent: sfsgID, Branch: unit.BranchCombat, Order: 2,
			Members: []string{"rifleman"}},
		{Base: datacontext.Base{ID: jsfawID}, Name: "JSFAW", Shortname: "JSFAW", Parent: uksfID, Branch: unit.BranchCombat, Order: 3},
		{Base: datacontext.Base{ID: sr7ID}, Name: "SR7", Shortname: "SR7", Branch: unit.BranchAuxiliary, Order: 4,
			Members: []string{"p1", "p2"}},
	}
	for _, u := range units {
		require.NoError(t, f.units.Add(ctx, u))
	}
}

func (f *fixture) seedRanks(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i, r := range []struct{ name, abbr string }{
		{"Major", "Maj"},
		{"Captain", "Capt"},
		{"Corporal", "Cpl"},
		{rank.Private, "Pte"},
		{rank.Recruit, "Rct"},
	} {
		require.NoError(t, f.contexts.Ranks.Add(ctx, &rank.Rank{Name: r.name, Abbreviation: r.abbr, Order: i}))
	}
}

func (f *fixture) addAccount(t *testing.T, id, first, last, rankName, unitName string) *account.Account {
	t.Helper()
	a := &account.Account{
		Base:            datacontext.Base{ID: id},
		Firstname:       first,
		Lastname:        last,
		Rank:            rankName,
		UnitAssignment:  unitName,
		MembershipState: account.Member,
	}
	require.NoError(t, f.contexts.Accounts.Add(context.Background(), a))
	return a
}

func (f *fixture) unit(t *testing.T, id string) *unit.Unit {
	t.Helper()
	u, err := f.units.GetSingle(context.Background(), id)
	require.NoError(t, err)
	return u
}
