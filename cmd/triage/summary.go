package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"doc-triage/internal/pipeline"
	"doc-triage/internal/textutil"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	rankStyle   = lipgloss.NewStyle().Bold(true).Width(4).Align(lipgloss.Right)
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// renderSummary formats the top-ranked sections of a run for the terminal
func renderSummary(res *pipeline.Result, output string) string {
	var b strings.Builder

	meta := res.Report.Metadata
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s", meta.Persona, meta.JobToBeDone)))
	b.WriteString("\n")

	if len(res.Top) == 0 {
		b.WriteString(dimStyle.Render("No sections found."))
		b.WriteString("\n")
	}
	for _, item := range res.Top {
		b.WriteString(fmt.Sprintf("%s %s  %s %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", item.Rank)),
			scoreStyle.Render(fmt.Sprintf("%.3f", item.Score)),
			textutil.Truncate(item.Section.Title, 40),
			dimStyle.Render(fmt.Sprintf("(%s p.%d)", item.Section.Document, item.Section.PageNumber)),
		))
	}

	stats := res.RefineStats
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d candidates, %d summarized, %d passthrough, %d fallback, %v",
		len(res.Ranked), stats.Summarized, stats.Passthrough, stats.Fallback, res.Duration.Round(1e6))))
	b.WriteString("\n")

	for _, f := range res.Failures {
		b.WriteString(warnStyle.Render("skipped: " + f.Error()))
		b.WriteString("\n")
	}
	if res.RunID != "" {
		b.WriteString(dimStyle.Render("run " + res.RunID))
		b.WriteString("\n")
	}
	b.WriteString("Report written to " + output)

	return boxStyle.Render(b.String()) + "\n"
}
