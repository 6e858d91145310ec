package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/svidal-nlive/karaoke-console/internal/models"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change pipeline settings",
	}
	cmd.AddCommand(newSettingsGetCommand(ctx))
	cmd.AddCommand(newSettingsSetCommand(ctx))
	return cmd
}

func newSettingsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current pipeline settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			current, err := ctx.settings.Get(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Chunk length (ms): %d\n", current.ChunkLengthMs)
			fmt.Fprintf(out, "Stem type: %s\n", current.StemType)
			return nil
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var chunkLengthMs int
	var stemType string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save pipeline settings (replaces the whole document)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			next := models.PipelineSettings{
				ChunkLengthMs: chunkLengthMs,
				StemType:      models.StemType(stemType),
			}
			if err := ctx.settings.Save(cmd.Context(), next); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkLengthMs, "chunk-length-ms", 60000, "Split chunk length in milliseconds (minimum 1000)")
	cmd.Flags().StringVar(&stemType, "stem-type", string(models.StemAccompaniment), "Stem type: accompaniment, vocals or both")

	return cmd
}
