package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
)

// maxRows bounds the resource list to the most recent rows.
const maxRows = 20

type styleFunc func(string) string

func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderPhases(&b, m)
	if len(m.Rows) > 0 {
		renderRows(&b, m)
	}
	if len(m.Outputs) > 0 {
		renderOutputs(&b, m)
	}
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render(fmt.Sprintf("nginx-demo: %s", m.Stack)))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done:
		status += readyStyle.Render("Complete")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render("Updating")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	progress := calculateProgress(m)
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(b, "  %s %d%%\n", bar, int(progress*100))
}

func renderPhases(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Phases"))
	b.WriteString("\n")

	for _, phase := range m.Phases {
		var icon string
		var style styleFunc
		switch {
		case phase.Err != nil:
			icon = crossMark
			style = sf(failedStyle)
		case phase.Done:
			icon = checkMark
			style = sf(readyStyle)
		case phase.Active:
			icon = currentSpinner(m.SpinnerFrame)
			style = sf(activeStyle)
		default:
			icon = pending
			style = sf(dimStyle)
		}
		fmt.Fprintf(b, "    %s %s\n", style(icon), style(phase.Name))
	}
}

func renderRows(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Resources"))
	b.WriteString("\n")

	rows := m.Rows
	if len(rows) > maxRows {
		fmt.Fprintf(b, "    %s\n", dimStyle.Render(fmt.Sprintf("... %d earlier", len(rows)-maxRows)))
		rows = rows[len(rows)-maxRows:]
	}
	for _, row := range rows {
		icon, style := rowIcon(row, m.SpinnerFrame)
		detail := ""
		switch row.Status {
		case stack.StatusRetrying:
			detail = fmt.Sprintf("retry %d: %v", row.Attempt, row.Err)
		case stack.StatusFailed:
			detail = fmt.Sprintf("%v", row.Err)
		case stack.StatusSucceeded:
			detail = formatDuration(row.Duration)
		}
		fmt.Fprintf(b, "    %s %-7s %-40s %s %s\n",
			style(icon), style(string(row.Op)), row.Type, row.Name, dimStyle.Render(detail))
	}
}

func rowIcon(row Row, frame int) (string, styleFunc) {
	switch row.Status {
	case stack.StatusSucceeded:
		return checkMark, sf(readyStyle)
	case stack.StatusFailed:
		return crossMark, sf(failedStyle)
	case stack.StatusRetrying:
		return warnMark, sf(warningStyle)
	default:
		return currentSpinner(frame), sf(activeStyle)
	}
}

func renderOutputs(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Outputs"))
	b.WriteString("\n")
	for _, k := range slices.Sorted(maps.Keys(m.Outputs)) {
		fmt.Fprintf(b, "    %s: %s\n", k, m.Outputs[k])
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed %s  |  q: quit", elapsed)))
	b.WriteString("\n")
}

func calculateProgress(m Model) float64 {
	if m.Done {
		return 1.0
	}
	if len(m.Phases) == 0 {
		return 0
	}
	done := 0
	for _, p := range m.Phases {
		if p.Done {
			done++
		}
	}
	return float64(done) / float64(len(m.Phases))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
