package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/uksf/uksf-api/internal/storage"
	"github.com/uksf/uksf-api/modules"
	"github.com/uksf/uksf-api/pkg/application"
	"github.com/uksf/uksf-api/pkg/configuration"
	"github.com/uksf/uksf-api/pkg/eventbus"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "uksfctl",
		Short:         "Personnel and command request maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newChainCmd())
	cmd.AddCommand(newRequestsCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}

// openApp builds the application against the configured storage without
// the HTTP surface. Realtime broadcasts are skipped since there is no hub.
func openApp(ctx context.Context) (application.Application, func(), error) {
	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	backend, closeStorage, err := storage.Open(ctx, conf, logger, modules.Collections...)
	if err != nil {
		return nil, nil, withCode(exitStorage, errors.Wrap(err, "open storage"))
	}

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
		Storage:  backend,
		Features: conf.Features(),
	})
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		closeStorage()
		return nil, nil, errors.Wrap(err, "load modules")
	}
	return app, func() {
		closeStorage()
		conf.Unload()
	}, nil
}
