package autoplay

import "math"

// Options controls a single AttemptAutoplay call.
type Options struct {
	// Target volume in [0, 1].
	Volume float64
	// Number of delayed retries after the immediate strategies fail.
	RetryAttempts int
	// Allow a muted start on mobile hosts.
	FallbackToMuted bool
	// Called once when every strategy failed and the user has to interact.
	OnFallback func()
}

// Option configures Options.
type Option func(*Options)

// DefaultOptions returns the options used when a caller passes none.
func DefaultOptions() Options {
	return Options{
		Volume:          1.0,
		RetryAttempts:   3,
		FallbackToMuted: true,
	}
}

// WithVolume sets the target volume. Values outside [0, 1] are clamped.
func WithVolume(v float64) Option {
	return func(o *Options) { o.Volume = v }
}

// WithRetryAttempts sets the number of delayed retries.
func WithRetryAttempts(n int) Option {
	return func(o *Options) { o.RetryAttempts = n }
}

// WithFallbackToMuted toggles the muted-start strategy.
func WithFallbackToMuted(enabled bool) Option {
	return func(o *Options) { o.FallbackToMuted = enabled }
}

// WithOnFallback registers the callback run when playback needs user input.
func WithOnFallback(fn func()) Option {
	return func(o *Options) { o.OnFallback = fn }
}

func (o Options) normalized() Options {
	if math.IsNaN(o.Volume) {
		o.Volume = 1
	}
	if o.Volume < 0 {
		o.Volume = 0
	}
	if o.Volume > 1 {
		o.Volume = 1
	}
	if o.RetryAttempts < 0 {
		o.RetryAttempts = 0
	}
	return o
}
