package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableOptions decorates a rendered table. RowColors, when set, is indexed
// like rows; a nil entry leaves that row uncoloured.
type tableOptions struct {
	Title     string
	RowColors []text.Colors
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return renderStyledTable(headers, rows, aligns, tableOptions{})
}

func renderStyledTable(headers []string, rows [][]string, aligns []columnAlignment, opts tableOptions) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if opts.Title != "" {
		tw.SetTitle(opts.Title)
	}

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for idx, row := range rows {
		var colors text.Colors
		if idx < len(opts.RowColors) {
			colors = opts.RowColors[idx]
		}
		r := make(table.Row, columns)
		for i := range columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if len(colors) > 0 && cell != "" {
				cell = colors.Sprint(cell)
			}
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
