package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/svidal-nlive/karaoke-console/internal/models"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show per-stage file counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			snapshot, err := ctx.aggregator.FetchSnapshot(cmd.Context())
			out := cmd.OutOrStdout()
			if err != nil {
				// Metrics are advisory: show what we have, note staleness.
				fmt.Fprintf(out, "WARNING: %v\n", err)
			}

			fmt.Fprintln(out, renderTable([]string{"Stage", "Files"}, metricsRows(snapshot)))
			if snapshot.Stale {
				fmt.Fprintln(out, "(stale: showing last-known counts)")
			}
			return nil
		},
	}
}

func metricsRows(snapshot models.MetricsSnapshot) [][]string {
	rows := make([][]string, 0, len(snapshot.Counts))
	for _, status := range models.AllStatuses() {
		count, ok := snapshot.Counts[status]
		if !ok {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	return rows
}
