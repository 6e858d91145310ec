package main

import (
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/svidal-nlive/karaoke-console/internal/models"
)

func renderTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	if isatty.IsTerminal(os.Stdout.Fd()) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleLight)
	}

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

func recordRows(items []models.PipelineRecord) [][]string {
	rows := make([][]string, 0, len(items))
	for _, rec := range items {
		stages := make([]string, 0, len(rec.Stages))
		for name := range rec.Stages {
			stages = append(stages, name)
		}
		sort.Strings(stages)
		rows = append(rows, []string{
			rec.Filename,
			string(rec.Status),
			strings.Join(stages, ", "),
			rec.LastError,
		})
	}
	return rows
}
