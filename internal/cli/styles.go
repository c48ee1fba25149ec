// Package cli renders tables and status text for terminal output.
package cli

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"})

	stoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "241", Dark: "245"})

	orphanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "166", Dark: "214"})

	contextStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "39"})
)

// StatusRunning renders a running marker.
func StatusRunning() string {
	return runningStyle.Render("running")
}

// StatusStopped renders a stopped marker.
func StatusStopped() string {
	return stoppedStyle.Render("stopped")
}

// StatusOrphaned renders an orphan marker.
func StatusOrphaned() string {
	return orphanStyle.Render("orphaned")
}

// StatusActive renders an active (non-orphaned) resource marker.
func StatusActive() string {
	return runningStyle.Render("active")
}

// ContextHeading renders a cluster context group heading.
func ContextHeading(name string) string {
	return contextStyle.Render(name)
}
