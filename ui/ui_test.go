package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/autoplay/internal/sim"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
	"github.com/dgnsrekt/autoplay/pkg/platform"
	"github.com/jonboulle/clockwork"
)

const iosUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148"

func newTestConfig(t *testing.T, ua string, names ...string) (Config, *sim.Host, map[string]*sim.Clip) {
	t.Helper()
	host := sim.NewHost(ua)
	clock := clockwork.NewFakeClock()
	coord := autoplay.NewCoordinator(autoplay.CoordinatorConfig{
		Backend:    host.Policy,
		Gestures:   host.Gestures,
		Visibility: host.Visibility,
		Platform:   platform.Static(ua),
		Clock:      clock,
	})
	t.Cleanup(coord.Close)

	clips := make(map[string]*sim.Clip)
	var tracks []Track
	for _, name := range names {
		clip := host.Policy.NewClip(name)
		clips[name] = clip
		tracks = append(tracks, Track{Name: name, Open: func() (autoplay.Clip, error) { return clip, nil }})
	}

	return Config{
		Coordinator: coord,
		Engine: autoplay.NewEngine(autoplay.EngineConfig{
			Contexts: coord,
			Platform: coord.Platform(),
			Clock:    clock,
			Defaults: []autoplay.Option{autoplay.WithRetryAttempts(0)},
		}),
		Gestures:   EmitterFunc(host.Gesture),
		Visibility: host.Visibility,
		Tracks:     tracks,
	}, host, clips
}

// drain runs cmd and feeds the resulting messages back into the model.
func drain(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	m, _ = drainQuit(t, m, cmd)
	return m
}

// drainQuit is drain that also reports whether a command asked to quit.
func drainQuit(t *testing.T, m model, cmd tea.Cmd) (model, bool) {
	t.Helper()
	quit := false
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("command chain did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
			quit = true
		default:
			updated, c := m.Update(msg)
			m = updated.(model)
			queue = append(queue, c)
		}
	}
	return m, quit
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyPressUnlocksAndPlaysTracks(t *testing.T) {
	cfg, host, clips := newTestConfig(t, "Mozilla/5.0 (X11; Linux x86_64)", "intro", "voice")
	cfg.Coordinator.EnsureUnlocked()
	m := newModel(cfg)

	updated, cmd := m.Update(keyPress("a"))
	m = drain(t, updated.(model), cmd)
	if !cfg.Coordinator.IsUnlocked() {
		t.Fatal("key press should unlock audio")
	}
	if !host.Policy.Activated() {
		t.Error("a key press counts as user activation")
	}
	if m.lastKind != autoplay.GestureKeyDown {
		t.Errorf("last gesture = %q", m.lastKind)
	}

	// the coordinator subscription delivers this when the program runs
	m = drain(t, m, func() tea.Msg { return unlockStateMsg{unlocked: true} })
	for i, tr := range m.tracks {
		if tr.status != trackPlaying {
			t.Errorf("track %d status = %v, want playing", i, tr.status)
		}
	}
	for name, clip := range clips {
		if !clip.Playing() {
			t.Errorf("clip %s not playing", name)
		}
	}
	if !strings.Contains(m.View(), "audio unlocked") {
		t.Errorf("view should report the unlock:\n%s", m.View())
	}
}

func TestTracksStartOnlyOnce(t *testing.T) {
	cfg, _, clips := newTestConfig(t, "desktop", "intro")
	cfg.Coordinator.EnsureUnlocked()
	cfg.Gestures.Emit(autoplay.GestureClick)

	m := newModel(cfg)
	unlocked := func() tea.Msg { return unlockStateMsg{unlocked: true} }
	m = drain(t, m, unlocked)
	m = drain(t, m, unlocked)
	if n := clips["intro"].Plays(); n != 1 {
		t.Errorf("intro played %d times, want 1", n)
	}
}

func TestQuitKeys(t *testing.T) {
	cfg, _, _ := newTestConfig(t, "desktop")
	m := newModel(cfg)
	for _, k := range []tea.KeyMsg{keyPress("q"), {Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("%q should quit", k.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q should quit", k.String())
		}
	}
}

func TestBlurSuspendsAndFocusResumes(t *testing.T) {
	cfg, host, _ := newTestConfig(t, iosUA)
	cfg.SuspendOnBlur = true
	cfg.Coordinator.EnsureUnlocked()
	host.Gesture(autoplay.GestureClick)

	shared := cfg.Coordinator.SharedContext()
	m := newModel(cfg)

	updated, cmd := m.Update(tea.BlurMsg{})
	m = drain(t, updated.(model), cmd)
	if shared.State() != autoplay.ContextSuspended {
		t.Fatal("blur should suspend the shared context")
	}
	if m.visible || !strings.Contains(m.View(), "hidden") {
		t.Error("view should show the hidden state")
	}

	updated, cmd = m.Update(tea.FocusMsg{})
	m = drain(t, updated.(model), cmd)
	if shared.State() != autoplay.ContextRunning {
		t.Error("focus should resume the shared context")
	}
	if !m.visible {
		t.Error("model should be visible after focus")
	}
}

func TestTimedOutRequest(t *testing.T) {
	cfg, _, _ := newTestConfig(t, "desktop")
	m := newModel(cfg)

	updated, _ := m.Update(unlockResultMsg{ok: false})
	if view := updated.(model).View(); !strings.Contains(view, "No gesture yet") {
		t.Errorf("view should prompt again after a timeout:\n%s", view)
	}
}

func TestExitWhenDone(t *testing.T) {
	cfg, _, _ := newTestConfig(t, "desktop")
	cfg.ExitWhenDone = true
	cfg.Tracks = []Track{{Name: "broken", Open: func() (autoplay.Clip, error) { return nil, errors.New("bad file") }}}

	m, quit := drainQuit(t, newModel(cfg), func() tea.Msg { return unlockStateMsg{unlocked: true} })
	if m.tracks[0].status != trackFailed {
		t.Fatalf("status = %v, want failed", m.tracks[0].status)
	}
	if !quit {
		t.Error("settled tracks should quit")
	}
	if !strings.Contains(m.View(), "bad file") {
		t.Error("view should show the track error")
	}
}

func TestUnlockStatus(t *testing.T) {
	tests := []struct {
		state autoplay.State
		want  string
	}{
		{autoplay.StateLocked, "audio locked"},
		{autoplay.StateUnlocking, "unlocking audio"},
		{autoplay.StateUnlocked, "audio unlocked"},
	}
	for _, tt := range tests {
		if got := unlockStatus(tt.state, time.Time{}); !strings.Contains(got, tt.want) {
			t.Errorf("unlockStatus(%v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestPerAttemptOptions(t *testing.T) {
	cfg, host, clips := newTestConfig(t, "desktop", "intro")
	cfg.Options = func() []autoplay.Option { return []autoplay.Option{autoplay.WithVolume(0.2)} }
	cfg.Coordinator.EnsureUnlocked()
	host.Gesture(autoplay.GestureKeyDown)

	drain(t, newModel(cfg), func() tea.Msg { return unlockStateMsg{unlocked: true} })
	if v := clips["intro"].Volume(); v != 0.2 {
		t.Errorf("volume = %v, want 0.2 from the live options", v)
	}
}
