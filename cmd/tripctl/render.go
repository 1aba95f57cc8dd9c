package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kjstillabower/trip-planner/internal/schema"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AAAAAA"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB454"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
)

const columnGap = 2

// renderTable writes rows under a styled header, padding each column to its
// widest cell.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := lipgloss.Width(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = style.Width(widths[i] + columnGap).Render(cell)
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, out...), " ")
	}

	fmt.Fprintln(w, line(headerStyle, headers))
	for _, row := range rows {
		fmt.Fprintln(w, line(lipgloss.NewStyle(), row))
	}
}

func renderEmpty(w io.Writer, msg string) {
	fmt.Fprintln(w, mutedStyle.Render(msg))
}

func dateRange(start, end string) string {
	switch {
	case start == "" && end == "":
		return "-"
	case end == "" || end == start:
		return start
	case start == "":
		return "until " + end
	}
	return start + " to " + end
}

func describeLocation(loc *schema.Location) string {
	if loc == nil {
		return "-"
	}
	var parts []string
	for _, s := range []string{loc.Name, loc.City, loc.Region, loc.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if c, ok := loc.Coordinates(); ok {
		parts = append(parts, fmt.Sprintf("(%.4f, %.4f)", c.Latitude, c.Longitude))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
