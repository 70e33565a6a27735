package main

import (
	"context"
	"os"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/uksf/uksf-api/modules/personnel/domain/unit"
	"github.com/uksf/uksf-api/modules/personnel/services"
	"github.com/uksf/uksf-api/pkg/datacontext"
)

type chainOptions struct {
	mode      string
	recipient string
	unit      string
	target    string
}

func newChainCmd() *cobra.Command {
	var opts chainOptions

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Resolve the reviewers a request would be sent to",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(services.Modes, services.ChainOfCommandMode(opts.mode)) {
				return withCode(exitUsage, errors.Errorf("unknown mode %q", opts.mode))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			ctx := cmd.Context()
			units := app.Service(services.UnitsService{}).(*services.UnitsService)
			accounts := app.Service(services.AccountsService{}).(*services.AccountsService)
			chains := app.Service(services.ChainOfCommandService{}).(*services.ChainOfCommandService)

			start, err := findUnit(ctx, units, opts.unit)
			if err != nil {
				return err
			}
			var target *unit.Unit
			if opts.target != "" {
				if target, err = findUnit(ctx, units, opts.target); err != nil {
					return err
				}
			}

			chain, err := chains.ResolveChain(ctx, services.ChainOfCommandMode(opts.mode), opts.recipient, start, target)
			if err != nil {
				return errors.Wrap(err, "resolve chain")
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"#", "ID", "Name"})
			for i, id := range chain.IDs() {
				tw.AppendRow(table.Row{i + 1, id, accounts.DisplayNameByID(ctx, id)})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", string(services.ModeCommanderAndOneAbove), "Chain of command mode")
	cmd.Flags().StringVar(&opts.recipient, "recipient", "", "Recipient account id (required)")
	cmd.Flags().StringVar(&opts.unit, "unit", "", "Start unit id, shortname or name (required)")
	cmd.Flags().StringVar(&opts.target, "target", "", "Target unit id, shortname or name")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}

// findUnit accepts an id, a shortname or a full name.
func findUnit(ctx context.Context, units *services.UnitsService, ref string) (*unit.Unit, error) {
	if datacontext.IsObjectID(ref) {
		return units.GetSingle(ctx, ref)
	}
	if u, err := units.GetByShortname(ctx, ref); err == nil {
		return u, nil
	}
	u, err := units.GetByName(ctx, ref)
	if err != nil {
		return nil, withCode(exitValidation, errors.Wrapf(err, "unit %q", ref))
	}
	return u, nil
}
