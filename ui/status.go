package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
	"github.com/dustin/go-humanize"
)

type trackStatus int

const (
	trackWaiting trackStatus = iota
	trackStarting
	trackPlaying
	trackMutedStart
	trackBlocked
	trackFailed
	trackDone
)

func (s trackStatus) String() string {
	switch s {
	case trackWaiting:
		return "waiting for unlock"
	case trackStarting:
		return "starting"
	case trackPlaying:
		return "playing"
	case trackMutedStart:
		return "playing (muted start)"
	case trackBlocked:
		return "blocked"
	case trackFailed:
		return "failed"
	case trackDone:
		return "finished"
	default:
		return "unknown"
	}
}

func (s trackStatus) settled() bool {
	return s == trackBlocked || s == trackFailed || s == trackDone
}

var (
	green  = lipgloss.Color("#04B575")
	yellow = lipgloss.Color("#ECFD65")
	red    = lipgloss.Color("#FF5F87")
	gray   = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}

	appNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(gray)
	nameStyle = lipgloss.NewStyle().Width(24)
)

// unlockStatus renders the coordinator state for the status line.
func unlockStatus(state autoplay.State, unlockedAt time.Time) string {
	var icon, text string
	var color lipgloss.TerminalColor

	switch state {
	case autoplay.StateUnlocked:
		icon, color = "●", green
		text = "audio unlocked"
		if !unlockedAt.IsZero() {
			text = fmt.Sprintf("audio unlocked %s", humanize.Time(unlockedAt))
		}
	case autoplay.StateUnlocking:
		icon, color = "⟳", yellow
		text = "unlocking audio"
	default:
		icon, color = "○", gray
		text = "audio locked"
	}
	return lipgloss.NewStyle().Foreground(color).Render(icon + " " + text)
}

// trackLine renders one track row.
func trackLine(name string, s trackStatus, err error) string {
	var icon string
	var color lipgloss.TerminalColor
	switch s {
	case trackPlaying, trackMutedStart:
		icon, color = "▶", green
	case trackDone:
		icon, color = "■", gray
	case trackBlocked, trackFailed:
		icon, color = "✗", red
	default:
		icon, color = "…", gray
	}

	status := s.String()
	if err != nil {
		status += ": " + err.Error()
	}
	return lipgloss.NewStyle().Foreground(color).Render(icon) + " " +
		nameStyle.Render(name) + " " +
		lipgloss.NewStyle().Foreground(color).Render(status)
}
