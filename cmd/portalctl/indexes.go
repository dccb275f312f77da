package main

import (
	"github.com/spf13/cobra"

	"github.com/staffhub/portal/internal/app"
	"github.com/staffhub/portal/pkg/logger"
)

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create the unique indexes the portal relies on",
	Long: `Create the unique indexes on users, assignments, submissions and
training progress. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(sv *app.Services) error {
			if err := sv.EnsureIndexes(cmd.Context()); err != nil {
				return err
			}
			logger.Info("indexes ensured")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ensureIndexesCmd)
}
