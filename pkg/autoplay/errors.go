package autoplay

import "errors"

// Failure causes. None of these escape a public operation; they are carried
// through logs and backend return values.
var (
	// ErrPolicyBlocked is returned by a Clip when the host refused playback.
	ErrPolicyBlocked = errors.New("playback blocked by autoplay policy")
	// ErrHandleUnavailable is returned when no audio context can be built.
	ErrHandleUnavailable = errors.New("audio context unavailable")
	// ErrGestureTimeout marks an unlock window that closed without a gesture.
	ErrGestureTimeout = errors.New("no qualifying gesture before timeout")
	// ErrStrategyExhausted marks an attempt where every playback strategy failed.
	ErrStrategyExhausted = errors.New("all playback strategies failed")
	// ErrContextClosed is returned by an AudioContext that can no longer resume.
	ErrContextClosed = errors.New("audio context closed")
)
