package logging

import (
	"github.com/uksf/uksf-api/modules/logging/handlers"
	"github.com/uksf/uksf-api/modules/logging/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/logging/services"
	"github.com/uksf/uksf-api/pkg/application"
)

type ModuleOptions struct {
	ActionLogEnabled bool
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
	audit := services.NewAuditService(persistence.NewContexts(app.Storage(), app.EventPublisher()))
	app.RegisterServices(audit)
	app.RegisterMiddleware(handlers.ActionLogMiddleware(audit, m.options.ActionLogEnabled))
	return nil
}

func (m *Module) Name() string {
	return "logging"
}
