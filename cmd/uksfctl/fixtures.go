package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/domain/rank"
	"github.com/uksf/uksf-api/modules/personnel/domain/role"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/serrors"
)

type rankFixture struct {
	Name         string `yaml:"name"`
	Abbreviation string `yaml:"abbreviation"`
}

type roleFixture struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// unitFixture refers to its parent by shortname; parents must appear first.
type unitFixture struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Shortname string            `yaml:"shortname"`
	Parent    string            `yaml:"parent"`
	Branch    string            `yaml:"branch"`
	Members   []string          `yaml:"members"`
	Roles     map[string]string `yaml:"roles"`
}

type accountFixture struct {
	ID         string `yaml:"id"`
	Firstname  string `yaml:"firstname"`
	Lastname   string `yaml:"lastname"`
	Email      string `yaml:"email"`
	Rank       string `yaml:"rank"`
	Unit       string `yaml:"unit"`
	Role       string `yaml:"role"`
	Membership string `yaml:"membership"`
}

// Fixtures is the seed file layout. Ranks and roles are ordered by position
// in the file, most senior first.
type Fixtures struct {
	Ranks    []rankFixture    `yaml:"ranks"`
	Roles    []roleFixture    `yaml:"roles"`
	Units    []unitFixture    `yaml:"units"`
	Accounts []accountFixture `yaml:"accounts"`
}

type seedReport struct {
	Ranks    int
	Roles    int
	Units    int
	Accounts int
}

func loadFixtures(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return decodeFixtures(f)
}

func decodeFixtures(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, withCode(exitValidation, errors.Wrap(err, "decode fixtures"))
	}
	if err := fx.validate(); err != nil {
		return nil, withCode(exitValidation, err)
	}
	return &fx, nil
}

func (fx *Fixtures) validate() error {
	ranks := make(map[string]bool, len(fx.Ranks))
	for _, r := range fx.Ranks {
		if r.Name == "" {
			return errors.New("rank without a name")
		}
		ranks[r.Name] = true
	}
	for _, r := range fx.Roles {
		switch role.Type(r.Type) {
		case role.Individual, role.UnitRole:
		default:
			return errors.Errorf("role %q: unknown type %q", r.Name, r.Type)
		}
	}
	units := make(map[string]bool, len(fx.Units))
	for _, u := range fx.Units {
		if u.Name == "" || u.Shortname == "" {
			return errors.New("unit needs a name and shortname")
		}
		if u.Parent != "" && !units[u.Parent] {
			return errors.Errorf("unit %q: parent %q must be listed before it", u.Shortname, u.Parent)
		}
		switch unit.Branch(u.Branch) {
		case unit.BranchCombat, unit.BranchAuxiliary, unit.BranchSecondary:
		default:
			return errors.Errorf("unit %q: unknown branch %q", u.Shortname, u.Branch)
		}
		units[u.Shortname] = true
	}
	for _, a := range fx.Accounts {
		if a.ID == "" {
			return errors.Wrapf(serrors.NewFieldRequiredError("id", ""), "account %s %s", a.Firstname, a.Lastname)
		}
		if a.Rank != "" && !ranks[a.Rank] {
			return errors.Errorf("account %q: unknown rank %q", a.ID, a.Rank)
		}
	}
	return nil
}

// apply inserts the fixtures in dependency order.
func (fx *Fixtures) apply(ctx context.Context, contexts *persistence.Contexts) (seedReport, error) {
	var report seedReport
	for i, r := range fx.Ranks {
		if err := contexts.Ranks.Add(ctx, &rank.Rank{Name: r.Name, Abbreviation: r.Abbreviation, Order: i}); err != nil {
			return report, errors.Wrapf(err, "add rank %q", r.Name)
		}
		report.Ranks++
	}
	for i, r := range fx.Roles {
		if err := contexts.Roles.Add(ctx, &role.Role{Name: r.Name, Order: i, RoleType: role.Type(r.Type)}); err != nil {
			return report, errors.Wrapf(err, "add role %q", r.Name)
		}
		report.Roles++
	}

	ids := make(map[string]string, len(fx.Units))
	for i, u := range fx.Units {
		parent := datacontext.EmptyID
		if u.Parent != "" {
			parent = ids[u.Parent]
		}
		roles := u.Roles
		if roles == nil {
			roles = map[string]string{}
		}
		members := u.Members
		if members == nil {
			members = []string{}
		}
		entity := &unit.Unit{
			Base:      datacontext.Base{ID: u.ID},
			Name:      u.Name,
			Shortname: u.Shortname,
			Parent:    parent,
			Branch:    unit.Branch(u.Branch),
			Order:     i,
			Members:   members,
			Roles:     roles,
		}
		if err := contexts.Units.Add(ctx, entity); err != nil {
			return report, errors.Wrapf(err, "add unit %q", u.Shortname)
		}
		ids[u.Shortname] = entity.ID
		report.Units++
	}

	for _, a := range fx.Accounts {
		state := account.MembershipState(a.Membership)
		if state == "" {
			state = account.Member
		}
		entity := &account.Account{
			Base:            datacontext.Base{ID: a.ID},
			Firstname:       a.Firstname,
			Lastname:        a.Lastname,
			Email:           a.Email,
			Rank:            a.Rank,
			UnitAssignment:  a.Unit,
			RoleAssignment:  a.Role,
			MembershipState: state,
			ServiceRecord:   []account.ServiceRecordEntry{},
		}
		if err := contexts.Accounts.Add(ctx, entity); err != nil {
			return report, errors.Wrapf(err, "add account %q", a.ID)
		}
		report.Accounts++
	}
	return report, nil
}
