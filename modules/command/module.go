package command

import (
	"github.com/uksf/uksf-api/modules/command/handlers"
	"github.com/uksf/uksf-api/modules/command/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/command/presentation/controllers"
	"github.com/uksf/uksf-api/modules/command/services"
	personnel "github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/application"
)

type ModuleOptions struct {
	TrainingUnitName string
	Channel          string
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

// Module depends on the personnel module being registered first.
type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	contexts := persistence.NewContexts(app.Storage(), app.EventPublisher(), app.Features(), app.Logger())

	accounts := app.Service(personnel.AccountsService{}).(*personnel.AccountsService)
	units := app.Service(personnel.UnitsService{}).(*personnel.UnitsService)

	requestsService := services.NewCommandRequestService(
		contexts,
		accounts,
		units,
		app.Service(personnel.ChainOfCommandService{}).(*personnel.ChainOfCommandService),
		m.notifier(app),
		m.auditor(app),
	)

	channel := m.options.Channel
	if channel == "" {
		channel = application.ChannelRequests
	}
	training := m.options.TrainingUnitName
	if training == "" {
		training = "Training"
	}

	var broadcaster services.Broadcaster
	if hub := app.Websocket(); hub != nil {
		broadcaster = hub
	}

	app.RegisterServices(
		contexts,
		requestsService,
		services.NewCompletionService(
			requestsService,
			accounts,
			units,
			app.Service(personnel.AssignmentService{}).(*personnel.AssignmentService),
			app.Service(personnel.LoaService{}).(*personnel.LoaService),
			app.Service(personnel.DischargeService{}).(*personnel.DischargeService),
			broadcaster,
			services.CompletionOptions{Channel: channel, TrainingUnitName: training},
		),
		services.NewCreationService(
			requestsService,
			accounts,
			units,
			app.Service(personnel.RanksService{}).(*personnel.RanksService),
			app.Service(personnel.LoaService{}).(*personnel.LoaService),
		),
	)

	if broadcaster != nil {
		handlers.RegisterRequestsEventsHandler(app.EventPublisher(), broadcaster, channel, app.Logger())
	}
	app.RegisterControllers(controllers.NewCommandRequestsController(app))
	return nil
}

func (m *Module) notifier(app application.Application) personnel.Notifier {
	for _, svc := range app.Services() {
		if n, ok := svc.(personnel.Notifier); ok {
			return n
		}
	}
	return nil
}

func (m *Module) auditor(app application.Application) services.Auditor {
	for _, svc := range app.Services() {
		if a, ok := svc.(services.Auditor); ok {
			return a
		}
	}
	app.Logger().WithField("module", m.Name()).Warn("no auditor registered, command audit trail is disabled")
	return nil
}

func (m *Module) Name() string {
	return "command"
}
