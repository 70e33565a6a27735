package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/modules/command/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/command/services"
	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/domain/rank"
	"github.com/uksf/uksf-api/modules/personnel/domain/role"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	personnelpersistence "github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	personnel "github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/datacontext/memory"
	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/features"
	"github.com/uksf/uksf-api/pkg/logging"
)

type notifierStub struct {
	mu     sync.Mutex
	owners []string
}

func (n *notifierStub) Notify(_ context.Context, owner, _, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners = append(n.owners, owner)
	return nil
}

type auditorStub struct {
	messages []string
}

func (a *auditorStub) LogAudit(_ context.Context, message, _ string) {
	a.messages = append(a.messages, message)
}

type broadcast struct {
	Channel string
	Method  string
}

type broadcasterStub struct {
	sent []broadcast
}

func (b *broadcasterStub) Broadcast(channel, method string, _ any) error {
	b.sent = append(b.sent, broadcast{Channel: channel, Method: method})
	return nil
}

type fixture struct {
	personnel   *personnelpersistence.Contexts
	contexts    *persistence.Contexts
	notifier    *notifierStub
	auditor     *auditorStub
	broadcaster *broadcasterStub
	units       *personnel.UnitsService
	accounts    *personnel.AccountsService
	loas        *personnel.LoaService
	discharges  *personnel.DischargeService
	requests    *services.CommandRequestService
	completion  *services.CompletionService
	creation    *services.CreationService
}

// Unit ids of the standard tree:
//
//	uksf (Combat root, 1iC cmdRoot)
//	├── sfsg (1iC cmdSFSG)
//	│   └── section (no positions, member rifleman)
//	└── training (no positions)
//	sr7 (Auxiliary root, shortname SR7, member clerk)
//	aviation (Auxiliary, 1iC pilot)
const (
	uksfID     = "000000000000000000000001"
	sfsgID     = "000000000000000000000002"
	sectionID  = "000000000000000000000003"
	trainingID = "000000000000000000000004"
	sr7ID      = "000000000000000000000005"
	aviationID = "000000000000000000000006"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.ConsoleLogger(logrus.ErrorLevel)
	bus := eventbus.NewEventPublisher(log)
	backend := memory.New()
	flags := features.NewStatic(features.UseMemoryDataCache)

	pc := personnelpersistence.NewContexts(backend, bus, flags, log)
	cc := persistence.NewContexts(backend, bus, flags, log)
	notifier := &notifierStub{}
	auditor := &auditorStub{}
	broadcaster := &broadcasterStub{}

	ranks := personnel.NewRanksService(pc.Ranks)
	units := personnel.NewUnitsService(pc.Units, pc.Roles)
	accounts := personnel.NewAccountsService(pc.Accounts, ranks)
	loas := personnel.NewLoaService(pc.Loas)
	discharges := personnel.NewDischargeService(pc.Discharges)
	chain := personnel.NewChainOfCommandService(units, "SR7")
	assignment := personnel.NewAssignmentService(accounts, units, ranks, notifier, bus)

	requests := services.NewCommandRequestService(cc, accounts, units, chain, notifier, auditor)
	completion := services.NewCompletionService(requests, accounts, units, assignment, loas, discharges, broadcaster,
		services.CompletionOptions{Channel: "requests", TrainingUnitName: "Training"})
	creation := services.NewCreationService(requests, accounts, units, ranks, loas)

	f := &fixture{
		personnel:   pc,
		contexts:    cc,
		notifier:    notifier,
		auditor:     auditor,
		broadcaster: broadcaster,
		units:       units,
		accounts:    accounts,
		loas:        loas,
		discharges:  discharges,
		requests:    requests,
		completion:  completion,
		creation:    creation,
	}
	f.seed(t)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	for i, name := range []string{unit.Commander, unit.SecondInCommand} {
		require.NoError(t, f.personnel.Roles.Add(ctx, &role.Role{Name: name, Order: i, RoleType: role.UnitRole}))
	}
	for i, name := range []string{role.Rifleman, role.Trainee} {
		require.NoError(t, f.personnel.Roles.Add(ctx, &role.Role{Name: name, Order: 10 + i, RoleType: role.Individual}))
	}
	for i, r := range []struct{ name, abbr string }{
		{"Major", "Maj"},
		{"Corporal", "Cpl"},
		{rank.Private, "Pte"},
		{rank.Recruit, "Rct"},
	} {
		require.NoError(t, f.personnel.Ranks.Add(ctx, &rank.Rank{Name: r.name, Abbreviation: r.abbr, Order: i}))
	}

	for _, u := range []*unit.Unit{
		{Base: datacontext.Base{ID: uksfID}, Name: "UKSF", Shortname: "UKSF", Branch: unit.BranchCombat,
			Members: []string{"cmdRoot"}, Roles: map[string]string{unit.Commander: "cmdRoot"}},
		{Base: datacontext.Base{ID: sfsgID}, Name: "SFSG", Shortname: "SFSG", Parent: uksfID, Branch: unit.BranchCombat, Order: 1,
			Members: []string{"cmdSFSG"}, Roles: map[string]string{unit.Commander: "cmdSFSG"}},
		{Base: datacontext.Base{ID: sectionID}, Name: "1 Section", Shortname: "1S", Parent: sfsgID, Branch: unit.BranchCombat, Order: 2,
			Members: []string{"rifleman"}},
		{Base: datacontext.Base{ID: trainingID}, Name: "Training", Shortname: "TRG", Parent: uksfID, Branch: unit.BranchCombat, Order: 3},
		{Base: datacontext.Base{ID: sr7ID}, Name: "SR7", Shortname: "SR7", Branch: unit.BranchAuxiliary, Order: 4,
			Members: []string{"clerk"}},
		{Base: datacontext.Base{ID: aviationID}, Name: "Aviation", Shortname: "AVN", Parent: sr7ID, Branch: unit.BranchAuxiliary, Order: 5,
			Members: []string{"pilot"}, Roles: map[string]string{unit.Commander: "pilot"}},
	} {
		require.NoError(t, f.units.Add(ctx, u))
	}

	for _, a := range []*account.Account{
		{Base: datacontext.Base{ID: "cmdRoot"}, Firstname: "Root", Lastname: "Commander", Rank: "Major", UnitAssignment: "UKSF"},
		{Base: datacontext.Base{ID: "cmdSFSG"}, Firstname: "Sam", Lastname: "Fisher", Rank: "Corporal", UnitAssignment: "SFSG"},
		{Base: datacontext.Base{ID: "rifleman"}, Firstname: "John", Lastname: "Smith", Rank: rank.Recruit, RoleAssignment: role.Trainee, UnitAssignment: "1 Section"},
		{Base: datacontext.Base{ID: "clerk"}, Firstname: "Pat", Lastname: "Clerk", Rank: "Corporal", UnitAssignment: "UKSF"},
		{Base: datacontext.Base{ID: "pilot"}, Firstname: "Ava", Lastname: "Pilot", Rank: "Corporal", UnitAssignment: "UKSF"},
	} {
		a.MembershipState = account.Member
		require.NoError(t, f.personnel.Accounts.Add(ctx, a))
	}
}

func as(actor string) context.Context {
	return composables.WithActor(context.Background(), actor)
}

func (f *fixture) account(t *testing.T, id string) *account.Account {
	t.Helper()
	a, err := f.accounts.GetSingle(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (f *fixture) unit(t *testing.T, id string) *unit.Unit {
	t.Helper()
	u, err := f.units.GetSingle(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) liveRequests(t *testing.T) int {
	t.Helper()
	items, err := f.contexts.Requests.Get(context.Background())
	require.NoError(t, err)
	return len(items)
}

func (f *fixture) archived(t *testing.T) int {
	t.Helper()
	items, err := f.contexts.Archive.Get(context.Background())
	require.NoError(t, err)
	return len(items)
}
