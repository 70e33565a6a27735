package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uksf/uksf-api/modules/personnel/infrastructure/persistence"
)

func newSeedCmd() *cobra.Command {
	var file string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load ranks, roles, units and accounts from a YAML fixture file",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := loadFixtures(file)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "fixtures ok: %d ranks, %d roles, %d units, %d accounts\n",
					len(fx.Ranks), len(fx.Roles), len(fx.Units), len(fx.Accounts))
				return nil
			}

			app, closeApp, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			contexts := app.Service(persistence.Contexts{}).(*persistence.Contexts)
			report, err := fx.apply(cmd.Context(), contexts)
			if err != nil {
				return withCode(exitStorage, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d ranks, %d roles, %d units, %d accounts\n",
				report.Ranks, report.Roles, report.Units, report.Accounts)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Fixture file (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
