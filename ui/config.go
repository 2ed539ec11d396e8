package ui

import (
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
)

// Config contains TUI-specific configuration.
type Config struct {
	Coordinator *autoplay.Coordinator
	Engine      *autoplay.Engine
	Gestures    GestureEmitter
	Visibility  VisibilitySetter
	Tracks      []Track

	// Options returns per-attempt options, so config edits apply to the
	// next attempt. Optional.
	Options func() []autoplay.Option

	EnableMouse   bool
	SuspendOnBlur bool
	ExitWhenDone  bool

	// For debugging the UI
	AltScreen bool `env:"AUTOPLAY_ALT_SCREEN" envDefault:"false"`
	ShowHelp  bool `env:"AUTOPLAY_SHOW_HELP"  envDefault:"true"`
}

// Track is a clip the TUI plays once audio is unlocked. Open is called after
// the unlock so backends that need the shared context can build the clip.
type Track struct {
	Name string
	Open func() (autoplay.Clip, error)
}

// GestureEmitter delivers user gestures. *events.GestureBus implements it.
type GestureEmitter interface {
	Emit(kind autoplay.GestureKind) int
}

// EmitterFunc adapts a function to GestureEmitter.
type EmitterFunc func(kind autoplay.GestureKind) int

// Emit implements GestureEmitter.
func (f EmitterFunc) Emit(kind autoplay.GestureKind) int { return f(kind) }

// VisibilitySetter receives focus changes. *events.VisibilityBus implements
// it.
type VisibilitySetter interface {
	Set(visible bool)
}
