package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultMaxCellWidth = 40

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF8C42")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	oddRowStyle = cellStyle.
			Foreground(lipgloss.Color("#D1D5DB"))

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

type ViewOptions struct {
	// MaxCellWidth caps the display width of a single cell. Zero or less
	// disables truncation.
	MaxCellWidth int
}

// View draws t as a bordered terminal table.
func View(t Table, opts ViewOptions) string {
	caser := cases.Title(language.Und, cases.NoLower)

	header := make([]string, len(t.Header))
	for i, h := range t.Header {
		header[i] = truncate(caser.String(h), opts.MaxCellWidth)
	}

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = truncate(cell, opts.MaxCellWidth)
		}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 1:
				return oddRowStyle
			default:
				return cellStyle
			}
		}).
		Headers(header...).
		Rows(rows...)

	return tbl.String()
}

func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
