package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/svidal-nlive/karaoke-console/internal/services/records"
)

var recordHeaders = []string{"Filename", "Status", "Stages", "Last error"}

func newFilesCommand(ctx *commandContext) *cobra.Command {
	var page int
	var perPage int
	var sortField string
	var sortDesc bool
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List all files tracked by the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			// The page size defaults from config; an explicit flag wins,
			// including --per-page=0 for everything.
			if !cmd.Flags().Changed("per-page") {
				perPage = ctx.config.PerPage
			}
			if perPage > 0 && page == 0 {
				page = 1
			}

			params := records.ListParams{
				Page:      page,
				PerPage:   perPage,
				SortField: sortField,
			}
			if sortDesc {
				params.SortOrder = records.SortDesc
			}
			if statusFilter != "" {
				params.Filter = map[string]string{"status": statusFilter}
			}

			result, err := ctx.adapter.List(cmd.Context(), "files", params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(recordHeaders, recordRows(result.Items)))
			fmt.Fprintf(out, "%d of %d file(s)\n", len(result.Items), result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number (defaults to 1 when paginating)")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Page size (0 shows everything; defaults from config)")
	cmd.Flags().StringVar(&sortField, "sort", "", "Sort field (filename, status, last_error)")
	cmd.Flags().BoolVar(&sortDesc, "desc", false, "Sort descending")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show files in this stage")

	return cmd
}

func newErrorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "errors",
		Short: "List files that failed processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.ensure(); err != nil {
				return err
			}

			result, err := ctx.adapter.List(cmd.Context(), "error-files", records.ListParams{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(recordHeaders, recordRows(result.Items)))
			fmt.Fprintf(out, "%d failed file(s)\n", result.Total)
			return nil
		},
	}
}
