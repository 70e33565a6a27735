package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/uksf/uksf-api/internal/server"
	"github.com/uksf/uksf-api/internal/storage"
	"github.com/uksf/uksf-api/modules"
	"github.com/uksf/uksf-api/pkg/application"
	"github.com/uksf/uksf-api/pkg/configuration"
	"github.com/uksf/uksf-api/pkg/eventbus"
	"github.com/uksf/uksf-api/pkg/logging"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	backend, closeStorage, err := storage.Open(ctx, conf, logger, modules.Collections...)
	if err != nil {
		panic(err)
	}
	defer closeStorage()

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
		Storage:  backend,
		Features: conf.Features(),
		Huber: application.NewHub(&application.HuberOptions{
			Logger:       logger,
			WriteTimeout: conf.Realtime.WriteTimeout,
			SendBuffer:   conf.Realtime.SendBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		}),
	})

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Modules:       modules.BuiltInModules(conf),
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-signalCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := serverInstance.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("failed to shut down server")
		}
	}()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
