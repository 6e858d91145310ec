package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <filename>",
		Short: "Show the pipeline status of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			rec, err := ctx.adapter.Get(cmd.Context(), "files", args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Filename: %s\n", rec.Filename)
			fmt.Fprintf(out, "Status: %s\n", rec.Status)
			if rec.LastError != "" {
				fmt.Fprintf(out, "Last error: %s\n", rec.LastError)
			}

			if len(rec.Stages) > 0 {
				names := make([]string, 0, len(rec.Stages))
				for name := range rec.Stages {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintln(out, "Stages:")
				for _, name := range names {
					detail, err := json.Marshal(rec.Stages[name])
					if err != nil {
						detail = []byte("{}")
					}
					fmt.Fprintf(out, "  %s: %s\n", name, detail)
				}
			}
			return nil
		},
	}
}
