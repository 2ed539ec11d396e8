package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
)

// unlockStateMsg is sent by the coordinator subscription.
type unlockStateMsg struct {
	unlocked bool
}

// unlockResultMsg is sent when an unlock request settles.
type unlockResultMsg struct {
	ok bool
}

// gestureMsg reports how many listeners a gesture reached.
type gestureMsg struct {
	kind      autoplay.GestureKind
	listeners int
}

type visibilityMsg struct {
	visible bool
}

// trackMsg reports the outcome of an autoplay attempt.
type trackMsg struct {
	index  int
	status trackStatus
	err    error
	waiter waiter
}

type trackDoneMsg struct {
	index int
	err   error
}

type waiter interface {
	Wait(ctx context.Context) error
}

// suspender is implemented by shared contexts that can pause output.
type suspender interface {
	Suspend() error
}

func requestUnlockCmd(c *autoplay.Coordinator) tea.Cmd {
	return func() tea.Msg {
		u := c.EnsureUnlocked()
		return unlockResultMsg{ok: u.Wait(context.Background())}
	}
}

func gestureCmd(cfg Config, kind autoplay.GestureKind) tea.Cmd {
	return func() tea.Msg {
		n := cfg.Gestures.Emit(kind)
		return gestureMsg{kind: kind, listeners: n}
	}
}

func visibilityCmd(cfg Config, visible bool) tea.Cmd {
	return func() tea.Msg {
		if !visible && cfg.SuspendOnBlur {
			if s, ok := cfg.Coordinator.SharedContext().(suspender); ok {
				if err := s.Suspend(); err != nil {
					log.Debug("Suspend on blur failed", "error", err)
				}
			}
		}
		cfg.Visibility.Set(visible)
		return visibilityMsg{visible: visible}
	}
}

func playTrackCmd(cfg Config, index int) tea.Cmd {
	t := cfg.Tracks[index]
	return func() tea.Msg {
		clip, err := t.Open()
		if err != nil {
			return trackMsg{index: index, status: trackFailed, err: err}
		}

		fellBack := false
		var opts []autoplay.Option
		if cfg.Options != nil {
			opts = cfg.Options()
		}
		opts = append(opts, autoplay.WithOnFallback(func() { fellBack = true }))
		ok := cfg.Engine.AttemptAutoplay(context.Background(), clip, opts...)
		log.Debug("Track attempted", "track", t.Name, "ok", ok, "fallback", fellBack)
		if !ok {
			return trackMsg{index: index, status: trackBlocked}
		}

		status := trackPlaying
		if clip.Muted() {
			status = trackMutedStart
		}
		w, _ := clip.(waiter)
		return trackMsg{index: index, status: status, waiter: w}
	}
}

func waitTrackCmd(index int, w waiter) tea.Cmd {
	return func() tea.Msg {
		return trackDoneMsg{index: index, err: w.Wait(context.Background())}
	}
}
