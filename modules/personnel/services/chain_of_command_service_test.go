package services_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/composables"
)

func TestResolveChain_Modes(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)
	section := f.unit(t, sectionID)
	sfsg := f.unit(t, sfsgID)
	jsfaw := f.unit(t, jsfawID)

	testCases := []struct {
		name   string
		mode   services.ChainOfCommandMode
		ctx    context.Context
		start  *unit.Unit
		target *unit.Unit
		want   []string
	}{
		{"full walks every ancestor", services.ModeFull, context.Background(), section, nil, []string{"cmdSFSG", "cmdRoot"}},
		{"next commander", services.ModeNextCommander, context.Background(), section, nil, []string{"cmdSFSG"}},
		{"next commander skips the actor", services.ModeNextCommanderExcludeSelf,
			composables.WithActor(context.Background(), "cmdSFSG"), section, nil, []string{"cmdRoot"}},
		{"commander and one above", services.ModeCommanderAndOneAbove, context.Background(), sfsg, nil, []string{"cmdSFSG", "cmdRoot"}},
		{"commander and personnel", services.ModeCommanderAndPersonnel, context.Background(), sfsg, nil, []string{"cmdSFSG", "p1", "p2"}},
		{"commander and target commander", services.ModeCommanderAndTargetCommander, context.Background(), section, jsfaw, []string{"cmdSFSG", "cmdRoot"}},
		{"personnel", services.ModePersonnel, context.Background(), section, nil, []string{"p1", "p2"}},
		{"target commander", services.ModeTargetCommander, context.Background(), section, sfsg, []string{"cmdSFSG"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			chain, err := f.chain.ResolveChain(tc.ctx, tc.mode, "rifleman", tc.start, tc.target)
			require.NoError(t, err)
			require.Equal(t, tc.want, chain.IDs())
		})
	}
}

func TestResolveChain_UnknownMode(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)

	_, err := f.chain.ResolveChain(context.Background(), "Sideways", "rifleman", f.unit(t, sectionID), nil)

	require.ErrorIs(t, err, services.ErrUnknownChainMode)
}

func TestResolveChain_Fallback(t *testing.T) {
	ctx := context.Background()

	t.Run("escalates to the root's children when the root commander is the recipient", func(t *testing.T) {
		f := newFixture(t)
		f.seedTree(t)
		chain, err := f.chain.ResolveChain(ctx, services.ModeCommanderAndOneAbove, "cmdRoot", f.unit(t, jsfawID), nil)
		require.NoError(t, err)
		require.Equal(t, []string{"cmdSFSG"}, chain.IDs())
	})

	t.Run("next commander modes skip the next commander stage", func(t *testing.T) {
		f := newFixture(t)
		f.seedTree(t)
		chain, err := f.chain.ResolveChain(ctx, services.ModeNextCommander, "cmdSFSG", f.unit(t, sectionID), nil)
		require.NoError(t, err)
		require.Equal(t, []string{"cmdRoot"}, chain.IDs())
	})

	t.Run("other modes try the next commander first", func(t *testing.T) {
		f := newFixture(t)
		f.seedTree(t)
		// section has no commander and its parent is excluded as the recipient
		chain, err := f.chain.ResolveChain(ctx, services.ModeCommanderAndOneAbove, "cmdSFSG", f.unit(t, sectionID), nil)
		require.NoError(t, err)
		require.Equal(t, []string{"cmdRoot"}, chain.IDs())
	})

	t.Run("falls back to personnel when no commander exists", func(t *testing.T) {
		f := newFixture(t)
		f.seedTree(t)
		for _, id := range []string{uksfID, sfsgID} {
			_, err := f.units.RemoveMemberRole(ctx, f.unit(t, id).CommanderID(), id)
			require.NoError(t, err)
		}
		chain, err := f.chain.ResolveChain(ctx, services.ModeFull, "rifleman", f.unit(t, sectionID), nil)
		require.NoError(t, err)
		require.Equal(t, []string{"p1", "p2"}, chain.IDs())
	})

	t.Run("empty when the recipient is the only candidate everywhere", func(t *testing.T) {
		f := newFixture(t)
		f.seedTree(t)
		for _, id := range []string{sfsgID} {
			_, err := f.units.RemoveMemberRole(ctx, f.unit(t, id).CommanderID(), id)
			require.NoError(t, err)
		}
		require.NoError(t, f.units.RemoveMember(ctx, "p1", sr7ID))
		require.NoError(t, f.units.RemoveMember(ctx, "p2", sr7ID))
		require.NoError(t, f.units.AddMember(ctx, "cmdRoot", sr7ID))

		chain, err := f.chain.ResolveChain(ctx, services.ModeFull, "cmdRoot", f.unit(t, sectionID), nil)
		require.NoError(t, err)
		require.Zero(t, chain.Len())
	})
}

func TestResolveChain_NeverContainsRecipientAndNeverEmpty(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)
	ctx := composables.WithActor(context.Background(), "cmdSFSG")

	recipients := []string{"cmdRoot", "cmdSFSG", "sfsg2", "rifleman", "p1", "p2", "nobody"}
	unitIDs := []string{uksfID, sfsgID, sectionID, jsfawID, sr7ID}

	for _, mode := range services.Modes {
		for _, recipient := range recipients {
			for _, startID := range unitIDs {
				for _, targetID := range unitIDs {
					chain, err := f.chain.ResolveChain(ctx, mode, recipient, f.unit(t, startID), f.unit(t, targetID))
					require.NoError(t, err)
					require.False(t, chain.Contains(recipient), "mode %s recipient %s start %s", mode, recipient, startID)
					require.NotZero(t, chain.Len(), "mode %s recipient %s start %s", mode, recipient, startID)
					for _, id := range chain.IDs() {
						require.NotEmpty(t, id)
					}
				}
			}
		}
	}
}

func TestGetMemberChainOfCommandOrder(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)
	ctx := context.Background()
	sfsg := f.unit(t, sfsgID)

	order, err := f.chain.GetMemberChainOfCommandOrder(ctx, sfsg, "sfsg2")
	require.NoError(t, err)
	require.Equal(t, math.MaxInt32-1, order)

	order, err = f.chain.GetMemberChainOfCommandOrder(ctx, sfsg, "cmdSFSG")
	require.NoError(t, err)
	require.Equal(t, math.MaxInt32, order)

	order, err = f.chain.GetMemberChainOfCommandOrder(ctx, sfsg, "rifleman")
	require.NoError(t, err)
	require.Equal(t, -1, order)
}

func TestInContextChainOfCommand(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)

	testCases := []struct {
		name   string
		actor  string
		member string
		want   bool
	}{
		{"self", "rifleman", "rifleman", true},
		{"commander of a parent unit", "cmdSFSG", "rifleman", true},
		{"root commander", "cmdRoot", "rifleman", true},
		{"second in command counts", "sfsg2", "rifleman", true},
		{"member without a position", "rifleman", "cmdSFSG", false},
		{"different branch", "cmdSFSG", "p1", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := composables.WithActor(context.Background(), tc.actor)
			got, err := f.chain.InContextChainOfCommand(ctx, tc.member)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	t.Run("anonymous", func(t *testing.T) {
		got, err := f.chain.InContextChainOfCommand(context.Background(), "rifleman")
		require.NoError(t, err)
		require.False(t, got)
	})
}

func TestIsPersonnelMember(t *testing.T) {
	f := newFixture(t)
	f.seedTree(t)
	ctx := context.Background()

	ok, err := f.chain.IsPersonnelMember(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.chain.IsPersonnelMember(ctx, "cmdSFSG")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChain_IgnoresEmptyAndDuplicates(t *testing.T) {
	chain := services.NewChain("a", "", "b", "a")
	chain.Union(services.NewChain("c", "b"))

	require.Equal(t, []string{"a", "b", "c"}, chain.IDs())
	require.Equal(t, []string{"a", "c"}, chain.Without("b").IDs())
}
