package sim

import (
	"context"
	"testing"
	"time"

	"github.com/dgnsrekt/autoplay/internal/session"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
	"github.com/dgnsrekt/autoplay/pkg/platform"
	"github.com/jonboulle/clockwork"
)

const (
	desktopUA = "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0"
	iosUA     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148"
)

func newStack(t *testing.T, ua string, flags autoplay.FlagStore) (*Host, *autoplay.Coordinator, *autoplay.Engine, *clockwork.FakeClock) {
	t.Helper()
	host := NewHost(ua)
	clock := clockwork.NewFakeClock()
	coord := autoplay.NewCoordinator(autoplay.CoordinatorConfig{
		Backend:    host.Policy,
		Gestures:   host.Gestures,
		Visibility: host.Visibility,
		Flags:      flags,
		Platform:   platform.Static(ua),
		Clock:      clock,
	})
	t.Cleanup(coord.Close)
	engine := autoplay.NewEngine(autoplay.EngineConfig{
		Contexts: coord,
		Platform: coord.Platform(),
		Clock:    clock,
	})
	return host, coord, engine, clock
}

func TestDesktop_BlockedUntilGesture(t *testing.T) {
	host, coord, engine, _ := newStack(t, desktopUA, session.NewMemoryStore())
	ctx := context.Background()

	voice := host.Policy.NewClip("voice")
	fallbacks := 0
	if engine.AttemptAutoplay(ctx, voice, autoplay.WithRetryAttempts(0), autoplay.WithOnFallback(func() { fallbacks++ })) {
		t.Fatal("desktop clip should be blocked before a gesture")
	}
	if fallbacks != 1 {
		t.Errorf("fallback ran %d times, want 1", fallbacks)
	}

	u := coord.EnsureUnlocked()
	if n := host.Gesture(autoplay.GestureClick); n != 1 {
		t.Fatalf("gesture reached %d listeners, want 1", n)
	}
	if !u.Wait(ctx) {
		t.Fatal("gesture should unlock")
	}
	if host.Policy.ContextsBuilt() != 1 {
		t.Errorf("contexts built = %d, want 1", host.Policy.ContextsBuilt())
	}

	if !engine.AttemptAutoplay(ctx, voice) {
		t.Fatal("clip should play after unlock")
	}
	if voice.Muted() || !voice.Playing() {
		t.Error("clip should be playing audibly")
	}
}

func TestIOS_MutedStartBeforeGesture(t *testing.T) {
	host, coord, engine, clock := newStack(t, iosUA, nil)

	theme := host.Policy.NewClip("theme")
	if !engine.AttemptAutoplay(context.Background(), theme, autoplay.WithVolume(0.5)) {
		t.Fatal("primed muted start should be allowed on iOS")
	}
	if !theme.Muted() {
		t.Fatal("clip should start muted")
	}

	clock.Advance(autoplay.DefaultUnmuteDelay)
	deadline := time.Now().Add(time.Second)
	for theme.Muted() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if theme.Muted() || theme.Volume() != 0.5 {
		t.Errorf("muted=%v volume=%v after unmute delay", theme.Muted(), theme.Volume())
	}

	// per-clip success does not unlock globally
	if coord.IsUnlocked() {
		t.Error("a successful autoplay must not mark the coordinator unlocked")
	}
}

func TestMobile_VisibilityRecovery(t *testing.T) {
	host, coord, _, _ := newStack(t, iosUA, nil)

	coord.EnsureUnlocked()
	host.Gesture(autoplay.GestureClick)
	if !coord.IsUnlocked() {
		t.Fatal("gesture should unlock")
	}

	shared := coord.SharedContext().(*Context)
	host.Hide()
	if shared.State() != autoplay.ContextSuspended {
		t.Fatal("hiding a mobile page should suspend audio")
	}

	host.Show()
	if shared.State() != autoplay.ContextRunning {
		t.Error("showing the page should resume the shared context")
	}
	if !coord.IsUnlocked() {
		t.Error("unlock state must survive visibility changes")
	}
}

func TestPersistedFlagWithoutActivation(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir(), session.NewID())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(true); err != nil {
		t.Fatal(err)
	}

	// a reload keeps the flag but the new page has no user activation
	host, coord, _, _ := newStack(t, desktopUA, store)
	if coord.IsUnlocked() {
		t.Fatal("startup unlock cannot succeed without activation")
	}
	if host.Policy.ContextsBuilt() != 1 {
		t.Errorf("startup attempt should build the context once, got %d", host.Policy.ContextsBuilt())
	}

	u := coord.EnsureUnlocked()
	host.Gesture(autoplay.GestureKeyDown)
	if !u.Wait(context.Background()) {
		t.Fatal("gesture should unlock")
	}
	if host.Policy.ContextsBuilt() != 1 {
		t.Errorf("contexts built = %d, want the startup context to be reused", host.Policy.ContextsBuilt())
	}
}
