package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"recmover/filemover"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// renderSummary formats the outcome counts of a run and one line per failure.
func renderSummary(report *filemover.Report) string {
	var b strings.Builder

	title := "Run summary"
	if report.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	moved := report.Count(filemover.StatusMoved)
	label := "moved"
	if report.DryRun {
		moved = report.Count(filemover.StatusWouldMove)
		label = "would move"
	}
	counts := fmt.Sprintf("%d %s, %d skipped, %d failed",
		moved, label,
		report.Count(filemover.StatusSkippedTrigger),
		report.Count(filemover.StatusFailed))
	b.WriteString(successStyle.Render(counts))
	b.WriteString("\n")

	if !report.DryRun && moved > 0 {
		elapsed := report.Finished.Sub(report.Started).Round(time.Millisecond)
		b.WriteString(infoStyle.Render(fmt.Sprintf("%s transferred in %s",
			humanize.Bytes(uint64(report.BytesMoved())), elapsed)))
		b.WriteString("\n")
	}
	if report.DryRun && len(report.PlannedDirs) > 0 {
		b.WriteString(infoStyle.Render(fmt.Sprintf("%d remote directories would be created", len(report.PlannedDirs))))
		b.WriteString("\n")
	}

	for _, o := range report.Failures() {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  %s [%s] %v", o.Path, o.Kind(), o.Err)))
		b.WriteString("\n")
	}
	return b.String()
}
