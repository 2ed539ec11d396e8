// Package ui provides the terminal front end. Key presses and clicks are
// delivered to the unlock coordinator as gestures and terminal focus drives
// page visibility.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
)

// Run starts the TUI and blocks until it exits or ctx is done.
func Run(ctx context.Context, cfg Config) error {
	log.Debug("Starting autoplay tui", "tracks", len(cfg.Tracks), "mouse", cfg.EnableMouse)

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithReportFocus()}
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(newModel(cfg), opts...)

	unsubscribe := cfg.Coordinator.OnUnlockStateChange(func(unlocked bool) {
		p.Send(unlockStateMsg{unlocked: unlocked})
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

type track struct {
	name   string
	status trackStatus
	err    error
}

type model struct {
	cfg     Config
	spinner spinner.Model
	tracks  []track

	visible  bool
	started  bool
	timedOut bool
	lastKind autoplay.GestureKind
}

func newModel(cfg Config) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sp.Style.Foreground(yellow)

	tracks := make([]track, len(cfg.Tracks))
	for i, t := range cfg.Tracks {
		tracks[i] = track{name: t.Name}
	}
	return model{cfg: cfg, spinner: sp, tracks: tracks, visible: true}
}

func (m model) Init() tea.Cmd {
	if m.cfg.Coordinator.IsUnlocked() {
		return func() tea.Msg { return unlockStateMsg{unlocked: true} }
	}
	return tea.Batch(m.spinner.Tick, requestUnlockCmd(m.cfg.Coordinator))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, gestureCmd(m.cfg, autoplay.GestureKeyDown)

	case tea.MouseMsg:
		switch msg.Action {
		case tea.MouseActionPress:
			return m, gestureCmd(m.cfg, autoplay.GesturePointerDown)
		case tea.MouseActionRelease:
			return m, gestureCmd(m.cfg, autoplay.GestureClick)
		}
		return m, nil

	case tea.FocusMsg:
		return m, visibilityCmd(m.cfg, true)

	case tea.BlurMsg:
		return m, visibilityCmd(m.cfg, false)

	case visibilityMsg:
		m.visible = msg.visible
		return m, nil

	case gestureMsg:
		m.lastKind = msg.kind
		return m, nil

	case unlockResultMsg:
		if !msg.ok && !m.cfg.Coordinator.IsUnlocked() {
			m.timedOut = true
		}
		return m, nil

	case unlockStateMsg:
		if !msg.unlocked || m.started {
			return m, nil
		}
		m.started = true
		m.timedOut = false
		cmds := make([]tea.Cmd, 0, len(m.tracks))
		for i := range m.tracks {
			m.tracks[i].status = trackStarting
			cmds = append(cmds, playTrackCmd(m.cfg, i))
		}
		if len(cmds) == 0 && m.cfg.ExitWhenDone {
			return m, tea.Quit
		}
		return m, tea.Batch(cmds...)

	case trackMsg:
		t := &m.tracks[msg.index]
		t.status, t.err = msg.status, msg.err
		if msg.waiter != nil {
			return m, waitTrackCmd(msg.index, msg.waiter)
		}
		return m, m.quitIfDone()

	case trackDoneMsg:
		t := &m.tracks[msg.index]
		t.status, t.err = trackDone, msg.err
		return m, m.quitIfDone()

	case spinner.TickMsg:
		if m.cfg.Coordinator.IsUnlocked() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) quitIfDone() tea.Cmd {
	if !m.cfg.ExitWhenDone {
		return nil
	}
	for _, t := range m.tracks {
		if !t.status.settled() {
			return nil
		}
	}
	return tea.Quit
}

func (m model) View() string {
	var b strings.Builder

	state := m.cfg.Coordinator.State()
	b.WriteString(appNameStyle.Render("autoplay") + " " + unlockStatus(state, m.cfg.Coordinator.UnlockedAt()))
	if !m.visible {
		b.WriteString(helpStyle.Render("  (hidden)"))
	}
	b.WriteString("\n\n")

	switch {
	case state == autoplay.StateUnlocked:
	case m.timedOut:
		b.WriteString("No gesture yet. Press any key to enable audio.\n\n")
	default:
		b.WriteString(m.spinner.View() + " Press any key or click to enable audio.\n\n")
	}

	for _, t := range m.tracks {
		b.WriteString("  " + trackLine(t.name, t.status, t.err) + "\n")
	}

	if m.cfg.ShowHelp {
		help := "any key: gesture • q: quit"
		if m.lastKind != "" {
			help += " • last gesture: " + string(m.lastKind)
		}
		b.WriteString("\n" + helpStyle.Render(help) + "\n")
	}
	return b.String()
}
