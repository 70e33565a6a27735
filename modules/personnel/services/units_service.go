package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/uksf/uksf-api/modules/personnel/domain/role"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	"github.com/uksf/uksf-api/pkg/datacontext"
)

// UnitsService reads and edits the unit forest.
type UnitsService struct {
	units persistence.UnitsContext
	roles persistence.RolesContext
}

func NewUnitsService(units persistence.UnitsContext, roles persistence.RolesContext) *UnitsService {
	return &UnitsService{units: units, roles: roles}
}

func (s *UnitsService) Data() persistence.UnitsContext {
	return s.units
}

func (s *UnitsService) Add(ctx context.Context, u *unit.Unit) error {
	u.Normalize()
	return s.units.Add(ctx, u)
}

func notFound(err error, sentinel error, format string, args ...any) error {
	if errors.Is(err, datacontext.ErrNotFound) {
		return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
	}
	return err
}

func (s *UnitsService) GetSingle(ctx context.Context, id string) (*unit.Unit, error) {
	u, err := s.units.GetSingle(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUnitNotFound, "id %s", id)
	}
	return u, nil
}

func (s *UnitsService) GetByName(ctx context.Context, name string) (*unit.Unit, error) {
	u, err := s.units.FindSingle(ctx, datacontext.Eq[*unit.Unit]("name", name))
	if err != nil {
		return nil, notFound(err, ErrUnitNotFound, "name %s", name)
	}
	return u, nil
}

func (s *UnitsService) GetByShortname(ctx context.Context, shortname string) (*unit.Unit, error) {
	u, err := s.units.FindSingle(ctx, datacontext.Eq[*unit.Unit]("shortname", shortname))
	if err != nil {
		return nil, notFound(err, ErrUnitNotFound, "shortname %s", shortname)
	}
	return u, nil
}

// GetRoot returns the root of branch.
func (s *UnitsService) GetRoot(ctx context.Context, branch unit.Branch) (*unit.Unit, error) {
	u, err := s.units.FindSingle(ctx, datacontext.Eq[*unit.Unit]("branch", branch).And(
		datacontext.Where(func(u *unit.Unit) bool { return u.IsRoot() }),
	))
	if err != nil {
		return nil, notFound(err, ErrUnitNotFound, "root of %s", branch)
	}
	return u, nil
}

// GetParent returns nil for roots.
func (s *UnitsService) GetParent(ctx context.Context, u *unit.Unit) (*unit.Unit, error) {
	if u.IsRoot() {
		return nil, nil
	}
	return s.GetSingle(ctx, u.Parent)
}

// GetParents returns the ancestors of u, nearest first.
func (s *UnitsService) GetParents(ctx context.Context, u *unit.Unit) ([]*unit.Unit, error) {
	var parents []*unit.Unit
	seen := map[string]bool{u.ID: true}
	current := u
	for !current.IsRoot() {
		parent, err := s.GetSingle(ctx, current.Parent)
		if err != nil {
			return nil, err
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("unit tree cycle at %s", parent.ID)
		}
		seen[parent.ID] = true
		parents = append(parents, parent)
		current = parent
	}
	return parents, nil
}

func (s *UnitsService) GetChildren(ctx context.Context, u *unit.Unit) ([]*unit.Unit, error) {
	return s.units.Find(ctx, datacontext.Eq[*unit.Unit]("parent", u.ID))
}

// GetAllChildren returns every descendant of u, breadth first, optionally
// preceded by u itself.
func (s *UnitsService) GetAllChildren(ctx context.Context, u *unit.Unit, includeParent bool) ([]*unit.Unit, error) {
	all, err := s.units.Get(ctx)
	if err != nil {
		return nil, err
	}
	byParent := make(map[string][]*unit.Unit)
	for _, candidate := range all {
		byParent[candidate.Parent] = append(byParent[candidate.Parent], candidate)
	}

	var out []*unit.Unit
	if includeParent {
		out = append(out, u)
	}
	seen := map[string]bool{u.ID: true}
	queue := []string{u.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range byParent[id] {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			out = append(out, child)
			queue = append(queue, child.ID)
		}
	}
	return out, nil
}

// UnitsWithMember returns the units listing id as a member.
func (s *UnitsService) UnitsWithMember(ctx context.Context, id string) ([]*unit.Unit, error) {
	return s.units.Find(ctx, datacontext.Contains[*unit.Unit]("members", id))
}

// UnitsWithRoleHolder returns the units where id holds any position.
func (s *UnitsService) UnitsWithRoleHolder(ctx context.Context, id string) ([]*unit.Unit, error) {
	return s.units.Find(ctx, datacontext.Where(func(u *unit.Unit) bool { return s.RolesHasMember(u, id) }))
}

func (s *UnitsService) HasRole(u *unit.Unit, roleName string) bool {
	return u.Holder(roleName) != ""
}

func (s *UnitsService) HasCommander(u *unit.Unit) bool {
	return s.HasRole(u, unit.Commander)
}

func (s *UnitsService) RolesHasMember(u *unit.Unit, id string) bool {
	_, ok := u.RoleOf(id)
	return ok
}

func (s *UnitsService) MemberHasRole(u *unit.Unit, id, roleName string) bool {
	return id != "" && u.Holder(roleName) == id
}

func (s *UnitsService) MemberHasAnyRole(ctx context.Context, id string) (bool, error) {
	units, err := s.UnitsWithRoleHolder(ctx, id)
	if err != nil {
		return false, err
	}
	return len(units) > 0, nil
}

func (s *UnitsService) AddMember(ctx context.Context, memberID, unitID string) error {
	return s.units.Update(ctx, unitID, datacontext.AddToSet("members", memberID))
}

// RemoveMember drops memberID from the unit along with any position held in it.
func (s *UnitsService) RemoveMember(ctx context.Context, memberID, unitID string) error {
	u, err := s.GetSingle(ctx, unitID)
	if err != nil {
		return err
	}
	update := datacontext.Pull("members", memberID)
	if held, ok := u.RoleOf(memberID); ok {
		update = update.Unset(rolePath(held))
	}
	return s.units.Update(ctx, unitID, update)
}

// SetMemberRole puts memberID into roleName, vacating any other position the
// member held in the same unit.
func (s *UnitsService) SetMemberRole(ctx context.Context, memberID, unitID, roleName string) error {
	u, err := s.GetSingle(ctx, unitID)
	if err != nil {
		return err
	}
	if u.Roles == nil {
		u.Roles = map[string]string{roleName: memberID}
		return s.units.Replace(ctx, u)
	}
	var update datacontext.Update
	if held, ok := u.RoleOf(memberID); ok && held != roleName {
		update = update.Unset(rolePath(held))
	}
	return s.units.Update(ctx, unitID, update.Set(rolePath(roleName), memberID))
}

// RemoveMemberRole vacates the position memberID holds in the unit and
// returns its name, or "" when the member held none.
func (s *UnitsService) RemoveMemberRole(ctx context.Context, memberID, unitID string) (string, error) {
	u, err := s.GetSingle(ctx, unitID)
	if err != nil {
		return "", err
	}
	held, ok := u.RoleOf(memberID)
	if !ok {
		return "", nil
	}
	return held, s.units.Update(ctx, unitID, datacontext.Unset(rolePath(held)))
}

// GetMemberRoleOrder ranks a member by the position held in u: the most
// senior position gives the largest value, no position gives -1.
func (s *UnitsService) GetMemberRoleOrder(ctx context.Context, u *unit.Unit, memberID string) (int, error) {
	held, ok := u.RoleOf(memberID)
	if !ok {
		return -1, nil
	}
	r, err := s.roles.FindSingle(ctx, datacontext.Eq[*role.Role]("name", held).And(
		datacontext.Eq[*role.Role]("roleType", role.UnitRole),
	))
	if err != nil {
		return 0, notFound(err, ErrRoleNotFound, "unit role %s", held)
	}
	return math.MaxInt32 - r.Order, nil
}

func rolePath(roleName string) string {
	return "roles." + roleName
}
