package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/svidal-nlive/karaoke-console/internal/services/livesync"
	"github.com/svidal-nlive/karaoke-console/internal/services/records"
	"github.com/svidal-nlive/karaoke-console/internal/services/scheduler"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow pipeline state live",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			signals, unsubscribe := ctx.bus.Subscribe()
			defer unsubscribe()

			controller := livesync.NewController(ctx.client, ctx.bus, func(state livesync.State) {
				switch state {
				case livesync.StateDegraded:
					fmt.Fprintln(cmd.ErrOrStderr(), "real-time feed disconnected; showing last-known data")
				case livesync.StateConnected:
					fmt.Fprintln(cmd.ErrOrStderr(), "real-time feed connected")
				}
			})

			go func() { _ = controller.Run(runCtx) }()

			if cron := ctx.config.MetricsRefreshCron; cron != "" {
				sched := scheduler.NewService()
				if _, err := sched.AddJob("metrics-refresh", cron, ctx.bus.Publish); err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}

			// Initial paint, then one repaint per coalesced signal.
			refresh(runCtx, ctx, cmd)
			for {
				select {
				case <-runCtx.Done():
					return nil
				case <-signals:
					refresh(runCtx, ctx, cmd)
				}
			}
		},
	}
}

// refresh pulls fresh truth for the list and the metrics panel. Failures keep
// the previous output; the next signal tries again.
func refresh(runCtx context.Context, ctx *commandContext, cmd *cobra.Command) {
	out := cmd.OutOrStdout()

	result, err := ctx.adapter.List(runCtx, "files", records.ListParams{})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: %v\n", err)
		if cached, fetchedAt, ok := ctx.adapter.Cached("files"); ok {
			result = records.ListResult{Items: cached, Total: len(cached)}
			fmt.Fprintf(cmd.ErrOrStderr(), "showing data from %s\n", fetchedAt.Format(time.Kitchen))
		}
	}

	snapshot, err := ctx.aggregator.FetchSnapshot(runCtx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: %v\n", err)
	}

	fmt.Fprintf(out, "\n%s\n", time.Now().Format(time.RFC1123))
	fmt.Fprintln(out, renderTable([]string{"Stage", "Files"}, metricsRows(snapshot)))
	fmt.Fprintln(out, renderTable(recordHeaders, recordRows(result.Items)))
	fmt.Fprintf(out, "%d file(s)\n", result.Total)
}
