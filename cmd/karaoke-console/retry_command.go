package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <filename>",
		Short: "Requeue a failed file for reprocessing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			if err := ctx.dispatcher.Retry(cmd.Context(), args[0]); err != nil {
				return err
			}

			// Status is not flipped locally; the next refresh is the truth.
			fmt.Fprintf(cmd.OutOrStdout(), "Retry requested for %s\n", args[0])
			return nil
		},
	}
}
