package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/domain/loa"
	"github.com/uksf/uksf-api/modules/personnel/domain/rank"
	"github.com/uksf/uksf-api/modules/personnel/domain/role"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/modules/personnel/services"
)

func TestAssignmentService_UpdateUnitRankAndRole(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)
	f.seedRanks(t)
	ctx := context.Background()
	f.addAccount(t, "rifleman", "John", "Smith", rank.Recruit, "1 Section")

	var changed []*account.GroupsChangedEvent
	f.bus.Subscribe(func(e *account.GroupsChangedEvent) { changed = append(changed, e) })

	message, err := f.assignment.UpdateUnitRankAndRole(ctx, services.AssignmentChange{
		AccountID: "rifleman",
		Unit:      "JSFAW",
		Role:      role.Rifleman,
		Rank:      rank.Private,
		Notes:     "passed selection",
	})
	require.NoError(t, err)
	require.Equal(t, "You have been transferred to JSFAW, assigned as a Rifleman and promoted to Private", message)

	acc, err := f.accounts.GetSingle(ctx, "rifleman")
	require.NoError(t, err)
	require.Equal(t, "JSFAW", acc.UnitAssignment)
	require.Equal(t, role.Rifleman, acc.RoleAssignment)
	require.Equal(t, rank.Private, acc.Rank)
	require.Len(t, acc.ServiceRecord, 1)
	require.Equal(t, "passed selection", acc.ServiceRecord[0].Notes)

	require.False(t, f.unit(t, sectionID).HasMember("rifleman"))
	require.True(t, f.unit(t, jsfawID).HasMember("rifleman"))

	require.Len(t, changed, 1)
	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, services.IconPromotion, f.notifier.sent[0].Icon)
}

func TestAssignmentService_DemotionAndRemoval(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)
	f.seedRanks(t)
	ctx := context.Background()
	f.addAccount(t, "rifleman", "John", "Smith", "Corporal", "1 Section")

	message, err := f.assignment.UpdateUnitRankAndRole(ctx, services.AssignmentChange{
		AccountID: "rifleman",
		Unit:      services.Remove,
		Rank:      rank.Private,
		Reason:    "inactivity",
	})
	require.NoError(t, err)
	require.Equal(t, "You have been removed from 1 Section and demoted to Private because inactivity", message)
	require.Equal(t, services.IconDemotion, f.notifier.sent[0].Icon)

	acc, err := f.accounts.GetSingle(ctx, "rifleman")
	require.NoError(t, err)
	require.Empty(t, acc.UnitAssignment)
	require.False(t, f.unit(t, sectionID).HasMember("rifleman"))
}

func TestAssignmentService_UnitRoles(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)
	ctx := context.Background()

	require.NoError(t, f.assignment.AssignUnitRole(ctx, jsfawID, "rifleman", unit.Commander))
	require.NoError(t, f.assignment.AssignUnitRole(ctx, sfsgID, "rifleman", unit.NCOiC))
	require.Equal(t, "rifleman", f.unit(t, jsfawID).CommanderID())

	held, err := f.assignment.UnassignUnitRole(ctx, jsfawID, "rifleman")
	require.NoError(t, err)
	require.Equal(t, unit.Commander, held)

	require.NoError(t, f.assignment.UnassignAllUnitRoles(ctx, "rifleman"))
	has, err := f.chain.MemberHasChainOfCommandPosition(ctx, "rifleman")
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, f.assignment.UnassignAllUnits(ctx, "rifleman"))
	units, err := f.units.UnitsWithMember(ctx, "rifleman")
	require.NoError(t, err)
	require.Empty(t, units)
}

func TestAssignmentService_AuxiliaryMembership(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)
	ctx := context.Background()

	require.NoError(t, f.assignment.AddAuxiliaryMembership(ctx, sr7ID, "rifleman"))
	require.True(t, f.unit(t, sr7ID).HasMember("rifleman"))
	require.Error(t, f.assignment.AddAuxiliaryMembership(ctx, sfsgID, "rifleman"))
}

func TestAccountsService_DisplayNameAndOrdering(t *testing.T) {
	f := newFixture(t)
	f.seedRanks(t)
	ctx := context.Background()
	f.addAccount(t, "a", "Zed", "Brown", rank.Private, "")
	f.addAccount(t, "b", "Amy", "Brown", rank.Private, "")
	f.addAccount(t, "c", "Bob", "Adams", "Captain", "")
	f.addAccount(t, "d", "Cat", "Abbot", rank.Private, "")

	require.Equal(t, "Capt.Adams.B", f.accounts.DisplayNameByID(ctx, "c"))
	require.Equal(t, "ghost", f.accounts.DisplayNameByID(ctx, "ghost"))

	ordered, err := f.accounts.OrderByRank(ctx, []string{"a", "ghost", "b", "c", "d"})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "d", "b", "a", "ghost"}, ordered)
}

func TestRanksService(t *testing.T) {
	f := newFixture(t)
	f.seedRanks(t)
	ctx := context.Background()

	require.True(t, f.ranks.IsSuperior(ctx, "Captain", rank.Private))
	require.False(t, f.ranks.IsSuperior(ctx, rank.Private, "Captain"))
	require.True(t, f.ranks.IsEqual(ctx, rank.Private, rank.Private))
	require.True(t, f.ranks.IsSuperiorOrEqual(ctx, "Major", "Major"))
	require.True(t, f.ranks.IsSuperior(ctx, rank.Recruit, ""))
}

func TestLoaService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2030, time.January, 10, 0, 0, 0, 0, time.UTC)
	id, err := f.loas.Add(ctx, &loa.Loa{Recipient: "rifleman", Start: start, End: start.AddDate(0, 0, 3), Reason: "holiday"})
	require.NoError(t, err)

	stored, err := f.loas.Data().GetSingle(ctx, id)
	require.NoError(t, err)
	require.Equal(t, loa.Pending, stored.State)
	require.False(t, stored.Late)

	require.NoError(t, f.loas.SetLoaState(ctx, id, loa.Approved))
	stored, err = f.loas.Data().GetSingle(ctx, id)
	require.NoError(t, err)
	require.Equal(t, loa.Approved, stored.State)

	_, err = f.loas.Add(ctx, &loa.Loa{Start: start, End: start.AddDate(0, 0, -1)})
	require.ErrorIs(t, err, services.ErrLoaDates)
}
