package autoplay

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/pkg/platform"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultRetryBaseDelay is multiplied by the attempt number between retries.
	DefaultRetryBaseDelay = 500 * time.Millisecond
	// DefaultUnmuteDelay is how long a muted start stays muted.
	DefaultUnmuteDelay = 100 * time.Millisecond
)

// ContextProvider exposes the shared audio context without granting control
// over the unlock state. *Coordinator implements it.
type ContextProvider interface {
	SharedContext() AudioContext
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Contexts ContextProvider // optional
	Platform platform.Info
	Clock    clockwork.Clock // optional; nil means the real clock

	RetryBaseDelay time.Duration
	UnmuteDelay    time.Duration

	// Defaults are applied before per-call options.
	Defaults []Option
}

// Engine starts playback of individual clips, trying progressively more
// forgiving strategies until one works.
type Engine struct {
	contexts       ContextProvider
	platform       platform.Info
	clock          clockwork.Clock
	retryBaseDelay time.Duration
	unmuteDelay    time.Duration
	defaults       []Option
}

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.UnmuteDelay <= 0 {
		cfg.UnmuteDelay = DefaultUnmuteDelay
	}
	return &Engine{
		contexts:       cfg.Contexts,
		platform:       cfg.Platform,
		clock:          clock,
		retryBaseDelay: cfg.RetryBaseDelay,
		unmuteDelay:    cfg.UnmuteDelay,
		defaults:       cfg.Defaults,
	}
}

func (e *Engine) options(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range e.defaults {
		opt(&o)
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o.normalized()
}

// AttemptAutoplay tries to start clip. It returns true as soon as one
// strategy succeeds. When all fail, OnFallback runs once and it returns
// false. Cancelling ctx stops the retries.
func (e *Engine) AttemptAutoplay(ctx context.Context, clip Clip, opts ...Option) bool {
	o := e.options(opts)

	if clip == nil {
		return e.fallback(o, "no clip")
	}

	if e.platform.IsMobile {
		if p, ok := clip.(InlinePrimer); ok {
			p.PrimeInline()
		}
	}

	err := e.play(ctx, clip, o.Volume)
	if err == nil {
		return true
	}
	log.Debug("Direct play failed", "error", err)

	if e.platform.IsMobile && o.FallbackToMuted && e.mutedStart(ctx, clip, o.Volume) {
		return true
	}

	if e.resumeAndPlay(ctx, clip, o.Volume) {
		return true
	}

	for attempt := 1; attempt <= o.RetryAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return e.fallback(o, ctx.Err().Error())
		case <-e.clock.After(time.Duration(attempt) * e.retryBaseDelay):
		}

		if e.play(ctx, clip, o.Volume) == nil {
			log.Debug("Autoplay succeeded on retry", "attempt", attempt)
			return true
		}
	}

	return e.fallback(o, ErrStrategyExhausted.Error())
}

func (e *Engine) play(ctx context.Context, clip Clip, volume float64) error {
	clip.SetVolume(volume)
	return clip.Play(ctx)
}

// mutedStart plays muted and unmutes after the unmute delay.
func (e *Engine) mutedStart(ctx context.Context, clip Clip, volume float64) bool {
	clip.SetMuted(true)
	clip.SetVolume(volume)
	if err := clip.Play(ctx); err != nil {
		clip.SetMuted(false)
		log.Debug("Muted play failed", "error", err)
		return false
	}

	e.clock.AfterFunc(e.unmuteDelay, func() {
		clip.SetMuted(false)
		clip.SetVolume(volume)
	})
	return true
}

func (e *Engine) resumeAndPlay(ctx context.Context, clip Clip, volume float64) bool {
	if e.contexts == nil {
		return false
	}
	shared := e.contexts.SharedContext()
	if shared == nil || shared.State() != ContextSuspended {
		return false
	}
	if err := shared.Resume(ctx); err != nil {
		log.Debug("Shared context resume failed", "error", err)
		return false
	}
	if err := e.play(ctx, clip, volume); err != nil {
		log.Debug("Play after context resume failed", "error", err)
		return false
	}
	return true
}

func (e *Engine) fallback(o Options, reason string) bool {
	log.Debug("Autoplay gave up", "reason", reason)
	if o.OnFallback != nil {
		o.OnFallback()
	}
	return false
}
