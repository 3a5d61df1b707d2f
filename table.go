package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. Zero maxWidth leaves it unbounded;
// otherwise long cells wrap, which keeps error messages from widening the table.
type column struct {
	header   string
	right    bool
	maxWidth int
}

type tableSpec struct {
	title   string
	columns []column
	rows    [][]string
	footer  []string
}

func renderTable(spec tableSpec) string {
	if len(spec.columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	// Footers carry totals such as sizes; upper-casing would turn kB into KB.
	tw.Style().Format.Footer = text.FormatDefault
	if spec.title != "" {
		tw.SetTitle(spec.title)
	}

	header := make(table.Row, len(spec.columns))
	configs := make([]table.ColumnConfig, len(spec.columns))
	for i, col := range spec.columns {
		header[i] = col.header
		align := text.AlignLeft
		if col.right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		}
		if col.maxWidth > 0 {
			configs[i].WidthMax = col.maxWidth
			configs[i].WidthMaxEnforcer = text.WrapSoft
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range spec.rows {
		tw.AppendRow(padRow(row, len(spec.columns)))
	}
	if len(spec.footer) > 0 {
		tw.AppendFooter(padRow(spec.footer, len(spec.columns)))
	}
	return tw.Render()
}

func padRow(cells []string, n int) table.Row {
	r := make(table.Row, n)
	for i := range r {
		if i < len(cells) {
			r[i] = cells[i]
		} else {
			r[i] = ""
		}
	}
	return r
}
