package modules

import (
	"slices"

	"github.com/uksf/uksf-api/modules/command"
	commandpersistence "github.com/uksf/uksf-api/modules/command/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/logging"
	loggingpersistence "github.com/uksf/uksf-api/modules/logging/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/notifications"
	notificationspersistence "github.com/uksf/uksf-api/modules/notifications/infrastructure/persistence"
	"github.com/uksf/uksf-api/modules/personnel"
	personnelpersistence "github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
	"github.com/uksf/uksf-api/pkg/application"
	"github.com/uksf/uksf-api/pkg/configuration"
)

// Collections lists every storage collection the built-in modules open.
var Collections = slices.Concat(
	[]string{
		personnelpersistence.AccountsCollection,
		personnelpersistence.UnitsCollection,
		personnelpersistence.RanksCollection,
		personnelpersistence.RolesCollection,
		personnelpersistence.LoasCollection,
		personnelpersistence.DischargesCollection,
	},
	[]string{
		commandpersistence.RequestsCollection,
		commandpersistence.ArchiveCollection,
	},
	[]string{
		notificationspersistence.NotificationsCollection,
		loggingpersistence.AuditCollection,
		loggingpersistence.ActionsCollection,
	},
)

// BuiltInModules returns the modules in registration order. Notifications and
// logging come first so personnel and command can find them as their
// notifier and auditor.
func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		notifications.NewModule(),
		logging.NewModule(&logging.ModuleOptions{
			ActionLogEnabled: conf.ActionLogEnabled,
		}),
		personnel.NewModule(&personnel.ModuleOptions{
			PersonnelUnitShortname: conf.Command.PersonnelUnitShortname,
		}),
		command.NewModule(&command.ModuleOptions{
			TrainingUnitName: conf.Command.TrainingUnitName,
			Channel:          application.ChannelRequests,
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
