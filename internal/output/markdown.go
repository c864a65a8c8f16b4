package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders reports as a markdown table.
type MarkdownFormatter struct{}

// Format renders a report as Markdown.
func (f *MarkdownFormatter) Format(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	if report.Title != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(report.Title)))
	}

	if len(report.Header) > 0 {
		sb.WriteString(markdownRow(report.Header))
		separators := make([]string, len(report.Header))
		for i, cell := range report.Header {
			separators[i] = strings.Repeat("-", max(len(cell), 3))
		}
		sb.WriteString("|" + strings.Join(separators, "|") + "|\n")
	}

	for _, row := range report.Rows {
		sb.WriteString(markdownRow(row))
	}

	if report.Footer != "" {
		sb.WriteString(fmt.Sprintf("\n**%s**\n", escapeMarkdownCell(report.Footer)))
	}

	return sb.String(), nil
}

func markdownRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = escapeMarkdownCell(cell)
	}
	return "| " + strings.Join(escaped, " | ") + " |\n"
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}
