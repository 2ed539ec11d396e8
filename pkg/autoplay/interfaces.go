package autoplay

import "context"

// ContextState is the lifecycle state of the shared audio context.
type ContextState int

const (
	// ContextSuspended means the context exists but is not producing sound.
	ContextSuspended ContextState = iota
	// ContextRunning means the context is producing sound.
	ContextRunning
	// ContextClosed means the context was torn down and cannot resume.
	ContextClosed
)

// String returns the string representation of the state.
func (s ContextState) String() string {
	switch s {
	case ContextSuspended:
		return "suspended"
	case ContextRunning:
		return "running"
	case ContextClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// AudioContext is the process-wide audio-processing handle.
type AudioContext interface {
	// State reports whether the context is running.
	State() ContextState

	// Resume restarts a suspended context.
	Resume(ctx context.Context) error

	// PlaySilence plays a single silent sample through the context.
	PlaySilence(ctx context.Context) error
}

// Clip is an individual playable audio resource.
type Clip interface {
	// Play starts playback. A nil error means the host accepted it.
	Play(ctx context.Context) error

	SetVolume(volume float64)
	Volume() float64
	SetMuted(muted bool)
	Muted() bool
}

// InlinePrimer is implemented by clips that need inline-playback attributes
// before mobile engines will play them outside fullscreen.
type InlinePrimer interface {
	PrimeInline()
}

// Backend builds the host objects the coordinator needs.
type Backend interface {
	// NewContext creates the shared audio context. It is called at most once
	// per successful construction.
	NewContext() (AudioContext, error)

	// NewSilentClip returns a short near-silent clip used as a secondary
	// unlock signal.
	NewSilentClip() (Clip, error)
}

// GestureKind identifies a qualifying user interaction.
type GestureKind string

const (
	GesturePressStart  GestureKind = "press-start"
	GesturePressEnd    GestureKind = "press-end"
	GesturePointerDown GestureKind = "pointer-down"
	GestureKeyDown     GestureKind = "key-down"
	GestureClick       GestureKind = "click"
)

// UnlockGestures is the set of interactions that may unlock audio.
var UnlockGestures = []GestureKind{
	GesturePressStart,
	GesturePressEnd,
	GesturePointerDown,
	GestureKeyDown,
	GestureClick,
}

// GestureSource delivers user gestures.
type GestureSource interface {
	// Once calls fn for the first gesture of any of the given kinds, then
	// removes the registration. The returned function removes it early.
	Once(kinds []GestureKind, fn func(GestureKind)) (remove func())
}

// VisibilitySource reports page/app visibility changes.
type VisibilitySource interface {
	OnVisibilityChange(fn func(visible bool)) (remove func())
}

// FlagStore persists the "previously unlocked" flag for the session.
type FlagStore interface {
	Get() (bool, error)
	Set(value bool) error
}
