// Package table renders simple column reports with lipgloss.
package table

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// terminalWidth returns the stdout width or 0 when stdout is not a terminal
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		return w
	}
	return 0
}

// Style defines the visual styling for tables
type Style struct {
	Header    lipgloss.Style
	Cell      lipgloss.Style
	Separator string
}

// PlainStyle returns a table style with no colors
func PlainStyle() Style {
	return Style{
		Header: lipgloss.NewStyle().
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1),
		Cell: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
		Separator: "|",
	}
}

// StyledStyle returns a colorful table style
func StyledStyle() Style {
	return Style{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(1).
			PaddingRight(1),
		Cell: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
		Separator: "|",
	}
}

// Table is a column report
type Table struct {
	headers   []string
	rows      [][]string
	style     Style
	alignment []lipgloss.Position
	// MaxWidth truncates the last column; 0 means the terminal width (or unlimited when not a terminal)
	MaxWidth int
}

// New creates a table with the given headers; styled selects the colorful style
func New(styled bool, headers ...string) *Table {
	t := &Table{
		headers:   headers,
		style:     PlainStyle(),
		alignment: make([]lipgloss.Position, len(headers)),
	}
	if styled {
		t.style = StyledStyle()
	}
	for i := range t.alignment {
		t.alignment[i] = lipgloss.Left
	}
	return t
}

// AlignRight right aligns the given columns (useful for addresses and counts)
func (t *Table) AlignRight(columns ...int) {
	for _, c := range columns {
		if c >= 0 && c < len(t.alignment) {
			t.alignment[c] = lipgloss.Right
		}
	}
}

// Append adds a row; missing cells are blank and extra cells are dropped
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) widths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] += 2
	}

	limit := t.MaxWidth
	if limit == 0 {
		limit = terminalWidth()
	}
	if limit > 0 && len(widths) > 0 {
		used := len(widths) - 1 // separators
		for _, w := range widths[:len(widths)-1] {
			used += w
		}
		if last := limit - used; last >= 4 && last < widths[len(widths)-1] {
			widths[len(widths)-1] = last
		}
	}
	return widths
}

func (t *Table) renderRow(row []string, widths []int, style lipgloss.Style) string {
	cells := make([]string, len(row))
	for i, cell := range row {
		if lipgloss.Width(cell) > widths[i]-2 {
			cell = truncate(cell, widths[i]-2)
		}
		cells[i] = style.Width(widths[i]).Align(t.alignment[i]).Render(cell)
	}
	return strings.Join(cells, t.style.Separator)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Render generates the complete table as a string
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}
	widths := t.widths()

	var out strings.Builder
	out.WriteString(t.renderRow(t.headers, widths, t.style.Header))
	out.WriteString("\n")
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	out.WriteString(strings.Join(seps, "+"))
	for _, row := range t.rows {
		out.WriteString("\n")
		out.WriteString(t.renderRow(row, widths, t.style.Cell))
	}
	return out.String()
}
