package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders reports as an ASCII table.
type TableFormatter struct{}

// Format renders a report as a table.
func (f *TableFormatter) Format(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if report.Title != "" {
		t.SetTitle(report.Title)
	}
	t.AppendHeader(toRow(report.Header))

	for _, row := range report.Rows {
		t.AppendRow(toRow(row))
	}

	if report.Footer != "" && len(report.Header) > 0 {
		footer := make(table.Row, len(report.Header))
		for i := range footer {
			footer[i] = ""
		}
		footer[len(footer)-1] = report.Footer
		t.AppendFooter(footer)
	}

	return t.Render(), nil
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}
