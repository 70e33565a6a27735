package persistence

import (
	"github.com/sirupsen/logrus"

	"github.com/uksf/uksf-api/modules/command/domain/commandrequest"
	"github.com/uksf/uksf-api/pkg/datacontext"
	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/features"
)

const (
	RequestsCollection = "commandRequests"
	ArchiveCollection  = "commandRequestsArchive"

	RequestsContextName = "CommandRequest"
	ArchiveContextName  = "CommandRequestArchive"
)

var Collections = []string{RequestsCollection, ArchiveCollection}

type RequestsContext = datacontext.DataContext[*commandrequest.CommandRequest]

type ArchiveContext = datacontext.DataContext[*commandrequest.Archived]

type Contexts struct {
	Requests RequestsContext
	Archive  ArchiveContext
}

func NewContexts(backend datacontext.Backend, bus eventbus.EventBus, flags features.Provider, log *logrus.Logger) *Contexts {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Contexts{
		Requests: datacontext.NewCachedContext(
			RequestsContextName,
			datacontext.Open[*commandrequest.CommandRequest](backend, RequestsCollection),
			bus, flags,
			datacontext.WithOrder(func(a, b *commandrequest.CommandRequest) bool {
				return a.DateCreated.Before(b.DateCreated)
			}),
			datacontext.WithLogger[*commandrequest.CommandRequest](
				log.WithField("component", "datacontext").WithField("context", RequestsContextName),
			),
		),
		Archive: datacontext.NewContext(
			ArchiveContextName,
			datacontext.Open[*commandrequest.Archived](backend, ArchiveCollection),
			bus,
		),
	}
}

