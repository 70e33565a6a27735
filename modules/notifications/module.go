package notifications

import (
	"github.com/uksf/uksf-api/modules/notifications/handlers"
	"github.com/uksf/uksf-api/modules/notifications/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/notifications/presentation/controllers"
	"github.com/uksf/uksf-api/modules/notifications/services"
	"github.com/uksf/uksf-api/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	app.RegisterServices(
		services.NewNotificationsService(
			persistence.NewNotificationsContext(app.Storage(), app.EventPublisher(), app.Features(), app.Logger()),
		),
	)
	if hub := app.Websocket(); hub != nil {
		handlers.RegisterNotificationsEventsHandler(app.EventPublisher(), hub, app.Logger())
	}
	app.RegisterControllers(controllers.NewNotificationsController(app))
	return nil
}

func (m *Module) Name() string {
	return "notifications"
}
