package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/staffhub/portal/internal/app"
	"github.com/staffhub/portal/pkg/logger"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-expired",
	Short: "Expire training completions past their expiry date",
	Long: `Move completed training progress whose expiry has passed to expired
and notify the affected staff. With --interval the sweep repeats until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetString("at")
		interval, _ := cmd.Flags().GetDuration("interval")
		clock, err := sweepClock(at)
		if err != nil {
			return err
		}
		if at != "" && interval > 0 {
			return fmt.Errorf("--at and --interval cannot be combined")
		}
		return withServices(cmd.Context(), func(sv *app.Services) error {
			return sweepLoop(cmd.Context(), sv.Portal, clock, interval)
		})
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().String("at", "", "evaluate expiry as of this RFC3339 time instead of now")
	sweepCmd.Flags().Duration("interval", 0, "repeat the sweep at this interval")
}

func sweepClock(at string) (func() time.Time, error) {
	if at == "" {
		return time.Now, nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return nil, fmt.Errorf("invalid --at: %w", err)
	}
	return func() time.Time { return t }, nil
}

type sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

func sweepLoop(ctx context.Context, s sweeper, clock func() time.Time, interval time.Duration) error {
	for {
		n, err := s.SweepExpired(ctx, clock())
		if err != nil {
			return fmt.Errorf("sweep failed after %d expirations: %w", n, err)
		}
		logger.Infof("expired %d training completions", n)
		if interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}
