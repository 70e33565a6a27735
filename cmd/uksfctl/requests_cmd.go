package main

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/uksf/uksf-api/modules/command/services"
)

func newRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect and resolve command requests",
	}
	cmd.AddCommand(newRequestsListCmd())
	cmd.AddCommand(newRequestsResolveCmd())
	return cmd
}

func newRequestsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live command requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			requests := app.Service(services.CommandRequestService{}).(*services.CommandRequestService)
			items, err := requests.Data().Get(cmd.Context())
			if err != nil {
				return withCode(exitStorage, errors.Wrap(err, "list requests"))
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Type", "Recipient", "From", "To", "Reviews"})
			for _, req := range items {
				reviews := make([]string, 0, len(req.Reviewers))
				for _, reviewer := range req.Reviewers {
					reviews = append(reviews, reviewer+"="+string(req.Reviews[reviewer]))
				}
				tw.AppendRow(table.Row{req.ID, req.Type, req.DisplayRecipient, req.DisplayFrom, req.DisplayValue, strings.Join(reviews, " ")})
			}
			tw.Render()
			return nil
		},
	}
}

func newRequestsResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Apply the outcome of a request whose reviews are settled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, closeApp, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp()

			completion := app.Service(services.CompletionService{}).(*services.CompletionService)
			if err := completion.Resolve(cmd.Context(), args[0]); err != nil {
				return errors.Wrapf(err, "resolve request %s", args[0])
			}
			cmd.Printf("request %s resolved\n", args[0])
			return nil
		},
	}
}
