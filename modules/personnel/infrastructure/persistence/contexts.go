package persistence

import (
	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/personnel/domain/account"
	"github.com/uksf/uksf-api/modules/personnel/domain/discharge"
	"github.com/uksf/uksf-api/modules/personnel/domain/loa"
	"github.com/uksf/uksf-api/modules/personnel/domain/rank"
	"github.com/uksf/uksf-api/modules/personnel/domain/role"
	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/features"
)

// Collection names, shared by every storage backend.
const (
	AccountsCollection   = "accounts"
	UnitsCollection      = "units"
	RanksCollection      = "ranks"
	RolesCollection      = "roles"
	LoasCollection       = "loas"
	DischargesCollection = "discharges"
)

var Collections = []string{
	AccountsCollection,
	UnitsCollection,
	RanksCollection,
	RolesCollection,
	LoasCollection,
	DischargesCollection,
}

type (
	AccountsContext   = datacontext.DataContext[*account.Account]
	UnitsContext      = datacontext.DataContext[*unit.Unit]
	RanksContext      = datacontext.DataContext[*rank.Rank]
	RolesContext      = datacontext.DataContext[*role.Role]
	LoasContext       = datacontext.DataContext[*loa.Loa]
	DischargesContext = datacontext.DataContext[*discharge.Collection]
)

// Contexts bundles the data contexts of the personnel module.
type Contexts struct {
	Accounts   AccountsContext
	Units      UnitsContext
	Ranks      RanksContext
	Roles      RolesContext
	Loas       LoasContext
	Discharges DischargesContext
}

func NewContexts(backend datacontext.Backend, bus eventbus.EventBus, flags features.Provider, log *logrus.Logger) *Contexts {
	entry := func(name string) *logrus.Entry {
		if log == nil {
			log = logrus.StandardLogger()
		}
		return log.WithField("component", "datacontext").WithField("context", name)
	}
	return &Contexts{
		Accounts: datacontext.NewCachedContext(
			"Account",
			datacontext.Open[*account.Account](backend, AccountsCollection),
			bus, flags,
			datacontext.WithLogger[*account.Account](entry("Account")),
		),
		Units: datacontext.NewCachedContext(
			"Unit",
			datacontext.Open[*unit.Unit](backend, UnitsCollection),
			bus, flags,
			datacontext.WithOrder(datacontext.OrderBy(func(u *unit.Unit) int { return u.Order })),
			datacontext.WithLogger[*unit.Unit](entry("Unit")),
		),
		Ranks: datacontext.NewCachedContext(
			"Rank",
			datacontext.Open[*rank.Rank](backend, RanksCollection),
			bus, flags,
			datacontext.WithOrder(datacontext.OrderBy(func(r *rank.Rank) int { return r.Order })),
			datacontext.WithLogger[*rank.Rank](entry("Rank")),
		),
		Roles: datacontext.NewCachedContext(
			"Role",
			datacontext.Open[*role.Role](backend, RolesCollection),
			bus, flags,
			datacontext.WithOrder(datacontext.OrderBy(func(r *role.Role) int { return r.Order })),
			datacontext.WithLogger[*role.Role](entry("Role")),
		),
		Loas: datacontext.NewCachedContext(
			"Loa",
			datacontext.Open[*loa.Loa](backend, LoasCollection),
			bus, flags,
			datacontext.WithLogger[*loa.Loa](entry("Loa")),
		),
		Discharges: datacontext.NewContext(
			"Discharge",
			datacontext.Open[*discharge.Collection](backend, DischargesCollection),
			bus,
		),
	}
}
