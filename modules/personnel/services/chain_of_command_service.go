package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/pkg/composables"
)

type ChainOfCommandMode string

const (
	ModeFull                        ChainOfCommandMode = "Full"
	ModeNextCommander               ChainOfCommandMode = "NextCommander"
	ModeNextCommanderExcludeSelf    ChainOfCommandMode = "NextCommanderExcludeSelf"
	ModeCommanderAndOneAbove        ChainOfCommandMode = "CommanderAndOneAbove"
	ModeCommanderAndPersonnel       ChainOfCommandMode = "CommanderAndPersonnel"
	ModeCommanderAndTargetCommander ChainOfCommandMode = "CommanderAndTargetCommander"
	ModePersonnel                   ChainOfCommandMode = "Personnel"
	ModeTargetCommander             ChainOfCommandMode = "TargetCommander"
)

var Modes = []ChainOfCommandMode{
	ModeFull,
	ModeNextCommander,
	ModeNextCommanderExcludeSelf,
	ModeCommanderAndOneAbove,
	ModeCommanderAndPersonnel,
	ModeCommanderAndTargetCommander,
	ModePersonnel,
	ModeTargetCommander,
}

func (m ChainOfCommandMode) escalates() bool {
	return m != ModeNextCommander && m != ModeNextCommanderExcludeSelf
}

// Chain is an insertion ordered set of member ids.
type Chain struct {
	ids  []string
	seen map[string]bool
}

func NewChain(ids ...string) *Chain {
	c := &Chain{seen: make(map[string]bool)}
	c.Add(ids...)
	return c
}

// Add ignores empty ids and duplicates.
func (c *Chain) Add(ids ...string) {
	for _, id := range ids {
		if id == "" || c.seen[id] {
			continue
		}
		c.seen[id] = true
		c.ids = append(c.ids, id)
	}
}

func (c *Chain) Union(other *Chain) {
	c.Add(other.ids...)
}

func (c *Chain) Without(id string) *Chain {
	out := NewChain()
	for _, candidate := range c.ids {
		if candidate != id {
			out.Add(candidate)
		}
	}
	return out
}

func (c *Chain) Contains(id string) bool {
	return c.seen[id]
}

func (c *Chain) Len() int {
	return len(c.ids)
}

func (c *Chain) IDs() []string {
	return append([]string(nil), c.ids...)
}

type ChainOfCommandService struct {
	units              *UnitsService
	personnelShortname string
}

func NewChainOfCommandService(units *UnitsService, personnelShortname string) *ChainOfCommandService {
	return &ChainOfCommandService{units: units, personnelShortname: personnelShortname}
}

// ResolveChain returns the reviewers for an action on recipient, escalating
// when the mode yields nobody: next commander of start, root commander of
// start's branch, commanders of the root's children, then personnel. The
// recipient is never part of the result.
func (s *ChainOfCommandService) ResolveChain(ctx context.Context, mode ChainOfCommandMode, recipient string, start, target *unit.Unit) (*Chain, error) {
	resolved, err := s.resolveMode(ctx, mode, start, target)
	if err != nil {
		return nil, err
	}
	chain := resolved.Without(recipient)

	if chain.Len() == 0 && mode.escalates() && start != nil {
		next, err := s.nextCommander(ctx, start)
		if err != nil {
			return nil, err
		}
		chain = next.Without(recipient)
	}

	var root *unit.Unit
	if chain.Len() == 0 {
		if root, err = s.rootOf(ctx, start); err != nil {
			return nil, err
		}
		if root != nil {
			chain = NewChain(root.CommanderID()).Without(recipient)
		}
	}

	if chain.Len() == 0 && root != nil {
		children, err := s.units.GetChildren(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			chain.Add(child.CommanderID())
		}
		chain = chain.Without(recipient)
	}

	if chain.Len() == 0 {
		personnel, err := s.personnel(ctx)
		if err != nil {
			return nil, err
		}
		chain = personnel.Without(recipient)
	}
	return chain, nil
}

func (s *ChainOfCommandService) resolveMode(ctx context.Context, mode ChainOfCommandMode, start, target *unit.Unit) (*Chain, error) {
	switch mode {
	case ModeFull:
		return s.fullChain(ctx, start)
	case ModeNextCommander:
		return s.nextCommander(ctx, start)
	case ModeNextCommanderExcludeSelf:
		return s.nextCommanderExcludeSelf(ctx, start)
	case ModeCommanderAndOneAbove:
		return s.commanderAndOneAbove(ctx, start)
	case ModeCommanderAndPersonnel:
		chain := s.commander(start)
		personnel, err := s.personnel(ctx)
		if err != nil {
			return nil, err
		}
		chain.Union(personnel)
		return chain, nil
	case ModeCommanderAndTargetCommander:
		chain, err := s.nextCommander(ctx, start)
		if err != nil {
			return nil, err
		}
		other, err := s.nextCommander(ctx, target)
		if err != nil {
			return nil, err
		}
		chain.Union(other)
		return chain, nil
	case ModePersonnel:
		return s.personnel(ctx)
	case ModeTargetCommander:
		return s.nextCommander(ctx, target)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChainMode, mode)
	}
}

func (s *ChainOfCommandService) commander(u *unit.Unit) *Chain {
	if u == nil {
		return NewChain()
	}
	return NewChain(u.CommanderID())
}

// lineage is u followed by its ancestors.
func (s *ChainOfCommandService) lineage(ctx context.Context, u *unit.Unit) ([]*unit.Unit, error) {
	if u == nil {
		return nil, nil
	}
	parents, err := s.units.GetParents(ctx, u)
	if err != nil {
		return nil, err
	}
	return append([]*unit.Unit{u}, parents...), nil
}

func (s *ChainOfCommandService) fullChain(ctx context.Context, start *unit.Unit) (*Chain, error) {
	units, err := s.lineage(ctx, start)
	if err != nil {
		return nil, err
	}
	chain := NewChain()
	for _, u := range units {
		chain.Add(u.CommanderID())
	}
	return chain, nil
}

func (s *ChainOfCommandService) nextCommander(ctx context.Context, start *unit.Unit) (*Chain, error) {
	units, err := s.lineage(ctx, start)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		if id := u.CommanderID(); id != "" {
			return NewChain(id), nil
		}
	}
	return NewChain(), nil
}

// nextCommanderExcludeSelf walks up past units commanded by the actor.
func (s *ChainOfCommandService) nextCommanderExcludeSelf(ctx context.Context, start *unit.Unit) (*Chain, error) {
	actor, _ := composables.UseActor(ctx)
	units, err := s.lineage(ctx, start)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		if id := u.CommanderID(); id != "" && id != actor {
			return NewChain(id), nil
		}
	}
	return NewChain(), nil
}

func (s *ChainOfCommandService) commanderAndOneAbove(ctx context.Context, start *unit.Unit) (*Chain, error) {
	chain := s.commander(start)
	if start == nil {
		return chain, nil
	}
	parent, err := s.units.GetParent(ctx, start)
	if err != nil {
		return nil, err
	}
	chain.Union(s.commander(parent))
	return chain, nil
}

func (s *ChainOfCommandService) personnel(ctx context.Context) (*Chain, error) {
	u, err := s.units.GetByShortname(ctx, s.personnelShortname)
	if errors.Is(err, ErrUnitNotFound) {
		return NewChain(), nil
	}
	if err != nil {
		return nil, err
	}
	return NewChain(u.Members...), nil
}

func (s *ChainOfCommandService) rootOf(ctx context.Context, start *unit.Unit) (*unit.Unit, error) {
	branch := unit.BranchCombat
	if start != nil {
		if start.IsRoot() {
			return start, nil
		}
		branch = start.Branch
	}
	root, err := s.units.GetRoot(ctx, branch)
	if errors.Is(err, ErrUnitNotFound) {
		return nil, nil
	}
	return root, err
}

// InContextChainOfCommand reports whether the actor is memberID or holds a
// position in a unit that contains memberID directly or through a
// descendant unit.
func (s *ChainOfCommandService) InContextChainOfCommand(ctx context.Context, memberID string) (bool, error) {
	actor, err := composables.UseActor(ctx)
	if err != nil {
		return false, nil //nolint:nilerr // anonymous callers are outside every chain
	}
	if actor == memberID {
		return true, nil
	}
	commanded, err := s.units.UnitsWithRoleHolder(ctx, actor)
	if err != nil {
		return false, err
	}
	for _, u := range commanded {
		tree, err := s.units.GetAllChildren(ctx, u, true)
		if err != nil {
			return false, err
		}
		for _, member := range tree {
			if member.HasMember(memberID) {
				return true, nil
			}
		}
	}
	return false, nil
}

// GetMemberChainOfCommandOrder is the descending sort key of a member's
// position in u; see UnitsService.GetMemberRoleOrder.
func (s *ChainOfCommandService) GetMemberChainOfCommandOrder(ctx context.Context, u *unit.Unit, memberID string) (int, error) {
	return s.units.GetMemberRoleOrder(ctx, u, memberID)
}

// MemberHasChainOfCommandPosition reports whether memberID holds any
// position in any unit.
func (s *ChainOfCommandService) MemberHasChainOfCommandPosition(ctx context.Context, memberID string) (bool, error) {
	return s.units.MemberHasAnyRole(ctx, memberID)
}


// IsPersonnelMember reports whether memberID belongs to the personnel unit.
func (s *ChainOfCommandService) IsPersonnelMember(ctx context.Context, memberID string) (bool, error) {
	personnel, err := s.personnel(ctx)
	if err != nil {
		return false, err
	}
	return personnel.Contains(memberID), nil
}
