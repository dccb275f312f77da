// Command portalctl runs maintenance tasks against the portal's stores.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/staffhub/portal/internal/app"
	"github.com/staffhub/portal/internal/config"
	"github.com/staffhub/portal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "Staff portal maintenance commands",
	Long: `portalctl runs maintenance tasks for the staff portal: index creation
and training expiry sweeps. It reads the same environment as the server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		lvl, _ := cmd.Flags().GetString("log-level")
		logger.Init(lvl)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
}

// withServices loads configuration, connects the stores and hands the
// assembled services to fn.
func withServices(ctx context.Context, fn func(*app.Services) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	stores, err := app.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect stores: %w", err)
	}
	defer stores.Close(context.Background())
	return fn(app.Build(cfg, stores))
}

func main() {
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
