package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/query"
)

const maxTableRows = 50

func renderTurn(turn chat.Turn, width int) []string {
	switch {
	case turn.Role == chat.RoleUser:
		return append([]string{styleUser.Render("You:")}, indent(wrap(turn.Text, width-2))...)
	case turn.Error:
		return append([]string{styleError.Render("Assistant:")}, indent(wrap(turn.Text, width-2))...)
	case turn.Kind == chat.KindSQLQuery:
		return strings.Split(styleSQL.Render(turn.Text), "\n")
	case turn.Kind == chat.KindTable:
		return renderTable(turn.Table)
	default:
		return append([]string{styleAssistant.Render("Assistant:")}, indent(wrap(turn.Text, width-2))...)
	}
}

func renderTable(result *query.Result) []string {
	if result == nil || len(result.Columns) == 0 {
		return []string{styleDimmed.Render("  (no columns)")}
	}
	if len(result.Rows) == 0 {
		return []string{styleDimmed.Render("  (0 rows)")}
	}

	rows := result.Rows
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleDimmed).
		Headers(result.Columns...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHead
			}
			return styleTableCell
		})
	for _, row := range rows {
		cells := make([]string, len(result.Columns))
		for i, value := range result.Values(row) {
			cells[i] = formatCell(value)
		}
		t.Row(cells...)
	}

	lines := strings.Split(t.Render(), "\n")
	summary := fmt.Sprintf("  %d row(s)", result.RowCount)
	if len(rows) < len(result.Rows) {
		summary += fmt.Sprintf(", showing first %d", len(rows))
	}
	return append(lines, styleDimmed.Render(summary))
}

func formatCell(value any) string {
	if value == nil {
		return "NULL"
	}
	return fmt.Sprint(value)
}

func wrap(text string, width int) []string {
	if width < 20 {
		width = 20
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		lines = append(lines, strings.Split(lipgloss.NewStyle().Width(width).Render(paragraph), "\n")...)
	}
	return lines
}

func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = "  " + line
	}
	return out
}
