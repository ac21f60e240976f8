package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3b4261")).
			Padding(0, 1)
)

// renderSummary formats the final snapshot and run counters.
func renderSummary(snap sim.Snapshot, m sim.Metrics) string {
	var b strings.Builder

	runID := m.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	b.WriteString(titleStyle.Render("run "+runID) + "  " + stateStyle(snap.State).Render(snap.State.String()) + "\n")

	elapsed := "-"
	if !m.StartedAt.IsZero() && !m.CompletedAt.IsZero() {
		elapsed = m.CompletedAt.Sub(m.StartedAt).Round(time.Millisecond).String()
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("t=%.2f  wall=%s  frames=%d  speed=%.1f", snap.Time, elapsed, m.Frames, snap.Speed)) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("tasks %d/%d  replans %d ok, %d failed, %d stale",
		m.TasksCompleted, m.TasksAssigned, m.ReplanSuccesses, m.ReplanFailures, m.StaleReplans)) + "\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-12s %8s %6s", "ROBOT", "STATUS", "PROGRESS", "TASKS")) + "\n")
	for _, a := range snap.Agents {
		status := a.Status
		if a.Stationary {
			status = "Stationary"
		}
		line := fmt.Sprintf("%-10s %-12s %5.1f/%-2d %3d/%-2d", a.ID, status, a.Progress, max(a.PathLen-1, 0), a.Cursor, a.Tasks)
		if a.Cursor == a.Tasks {
			b.WriteString(doneStyle.Render(line) + "\n")
		} else {
			b.WriteString(warnStyle.Render(line) + "\n")
		}
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func stateStyle(s sim.PlaybackState) lipgloss.Style {
	if s == sim.Completed {
		return doneStyle
	}
	return warnStyle
}
