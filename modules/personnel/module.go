package personnel

import (
	"github.com/uksf/uksf-api/modules/personnel/handlers"
	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/application"
)

type ModuleOptions struct {
	PersonnelUnitShortname string
	Notifier               services.Notifier
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	contexts := persistence.NewContexts(app.Storage(), app.EventPublisher(), app.Features(), app.Logger())

	ranksService := services.NewRanksService(contexts.Ranks)
	unitsService := services.NewUnitsService(contexts.Units, contexts.Roles)
	accountsService := services.NewAccountsService(contexts.Accounts, ranksService)

	shortname := m.options.PersonnelUnitShortname
	if shortname == "" {
		shortname = "SR7"
	}

	app.RegisterServices(
		contexts,
		ranksService,
		unitsService,
		accountsService,
		services.NewLoaService(contexts.Loas),
		services.NewDischargeService(contexts.Discharges),
		services.NewChainOfCommandService(unitsService, shortname),
		services.NewAssignmentService(
			accountsService,
			unitsService,
			ranksService,
			m.notifier(app),
			app.EventPublisher(),
		),
	)

	handlers.RegisterGroupsHandler(app.EventPublisher(), app.Logger())
	return nil
}

// notifier falls back to any registered service that can notify.
func (m *Module) notifier(app application.Application) services.Notifier {
	if m.options.Notifier != nil {
		return m.options.Notifier
	}
	for _, svc := range app.Services() {
		if n, ok := svc.(services.Notifier); ok {
			return n
		}
	}
	app.Logger().WithField("module", m.Name()).Warn("no notifier registered, personnel notifications are disabled")
	return nil
}

func (m *Module) Name() string {
	return "personnel"
}
