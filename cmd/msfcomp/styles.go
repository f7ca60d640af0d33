package main

import (
	"fmt"
	"strings"

	"msfcomp/internal/scan"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.Color("#8BC34A")
	danger = lipgloss.Color("#E5484D")
	muted  = lipgloss.Color("#8B949E")

	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)

// renderSummary renders scan totals as a small bordered block.
func renderSummary(stats scan.Stats) string {
	status := okStyle.Render("OK")
	if stats.Invalid > 0 {
		status = errStyle.Render("FAILED")
	}

	lines := []string{
		titleStyle.Render("msfcomp check") + "  " + status,
		fmt.Sprintf("records  %d", stats.Total),
		okStyle.Render(fmt.Sprintf("valid    %d", stats.Valid)),
		errStyle.Render(fmt.Sprintf("invalid  %d", stats.Invalid)),
		mutedStyle.Render(fmt.Sprintf("blank    %d", stats.Blank)),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
