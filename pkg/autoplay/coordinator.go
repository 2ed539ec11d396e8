package autoplay

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/pkg/platform"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	// DefaultUnlockTimeout bounds how long EnsureUnlocked waits for a gesture.
	DefaultUnlockTimeout = 30 * time.Second
	// DefaultAttemptTimeout bounds a single unlock sequence against the backend.
	DefaultAttemptTimeout = 5 * time.Second

	resumeInterval = 250 * time.Millisecond
)

// State is the unlock state of the coordinator.
type State int

const (
	// StateLocked means no unlock is in progress and audio is still gated.
	StateLocked State = iota
	// StateUnlocking means a request is waiting for a gesture or the unlock
	// sequence is running.
	StateUnlocking
	// StateUnlocked is terminal.
	StateUnlocked
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocking:
		return "unlocking"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// CoordinatorConfig wires a Coordinator to its host.
type CoordinatorConfig struct {
	Backend    Backend
	Gestures   GestureSource
	Visibility VisibilitySource  // optional
	Flags      FlagStore         // optional; nil disables persistence
	Platform   platform.Provider // optional; nil means desktop
	Clock      clockwork.Clock   // optional; nil means the real clock

	UnlockTimeout  time.Duration
	AttemptTimeout time.Duration
}

type subscriber struct {
	id int
	fn func(bool)
}

// Coordinator owns the shared audio context and the one-time unlock.
type Coordinator struct {
	backend        Backend
	gestures       GestureSource
	flags          FlagStore
	clock          clockwork.Clock
	platform       platform.Info
	unlockTimeout  time.Duration
	attemptTimeout time.Duration
	resumeLimiter  *rate.Limiter

	mu          sync.Mutex
	unlocked    bool
	unlocking   bool
	persisted   bool
	closed      bool
	unlockedAt  time.Time
	shared      AudioContext
	visible     bool
	resumeRetry clockwork.Timer
	pending     *Unlock
	timer       clockwork.Timer
	disarm      func()
	stopVisible func()
	subscribers []subscriber
	nextID      int

	// serializes performUnlock
	unlockMu sync.Mutex
}

// NewCoordinator builds a coordinator. If the flag store says audio was
// unlocked earlier in this session, a best-effort unlock runs before it
// returns; failure leaves the coordinator locked.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.UnlockTimeout <= 0 {
		cfg.UnlockTimeout = DefaultUnlockTimeout
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}

	var info platform.Info
	if cfg.Platform != nil {
		info = platform.Detect(cfg.Platform.UserAgent())
	}
	log.Debug("Platform detected", "info", info.String())

	c := &Coordinator{
		backend:        cfg.Backend,
		gestures:       cfg.Gestures,
		flags:          cfg.Flags,
		clock:          clock,
		platform:       info,
		unlockTimeout:  cfg.UnlockTimeout,
		attemptTimeout: cfg.AttemptTimeout,
		resumeLimiter:  rate.NewLimiter(rate.Every(resumeInterval), 1),
		visible:        true,
	}

	if cfg.Visibility != nil {
		c.stopVisible = cfg.Visibility.OnVisibilityChange(c.onVisibilityChange)
	}

	if c.flags != nil {
		prev, err := c.flags.Get()
		if err != nil {
			log.Warn("Could not read unlock flag", "error", err)
		}
		if prev {
			c.persisted = true
			ctx, cancel := context.WithTimeout(context.Background(), c.attemptTimeout)
			if !c.performUnlock(ctx) {
				log.Warn("Session was unlocked before but audio is locked again; waiting for a gesture")
			}
			cancel()
		}
	}

	return c
}

// Platform returns the platform detected at construction.
func (c *Coordinator) Platform() platform.Info {
	return c.platform
}

// EnsureUnlocked returns a request that settles true once audio is unlocked,
// or false when no gesture arrives within the unlock timeout. Callers asking
// while a request is in flight share it.
func (c *Coordinator) EnsureUnlocked() *Unlock {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unlocked {
		return resolvedUnlock(true)
	}
	if c.closed {
		return resolvedUnlock(false)
	}
	if c.pending != nil {
		return c.pending
	}

	u := newUnlock()
	c.pending = u
	c.armLocked()
	c.timer = c.clock.AfterFunc(c.unlockTimeout, func() { c.expire(u) })

	log.Debug("Waiting for unlock gesture", "timeout", c.unlockTimeout)
	return u
}

// IsUnlocked reports whether audio has been unlocked.
func (c *Coordinator) IsUnlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlocked
}

// State returns the current unlock state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.unlocked:
		return StateUnlocked
	case c.pending != nil || c.unlocking:
		return StateUnlocking
	default:
		return StateLocked
	}
}

// UnlockedAt returns when the unlock happened, or the zero time.
func (c *Coordinator) UnlockedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unlockedAt
}

// SharedContext returns the shared audio context, or nil if no unlock
// attempt has created it yet.
func (c *Coordinator) SharedContext() AudioContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shared
}

// OnUnlockStateChange registers fn to be called with true when audio becomes
// unlocked. The returned function removes the registration and may be called
// any number of times.
func (c *Coordinator) OnUnlockStateChange(fn func(unlocked bool)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subscribers {
				if s.id == id {
					c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Close stops listening for gestures and visibility changes. A pending
// request settles false. The unlock state is kept.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = nil
	disarm := c.disarm
	c.disarm = nil
	stopVisible := c.stopVisible
	c.stopVisible = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.resumeRetry != nil {
		c.resumeRetry.Stop()
		c.resumeRetry = nil
	}
	c.mu.Unlock()

	if disarm != nil {
		disarm()
	}
	if stopVisible != nil {
		stopVisible()
	}
	if pending != nil {
		pending.resolve(false)
	}
}

// armLocked registers the one-shot gesture listeners unless they are already
// registered. c.mu must be held.
func (c *Coordinator) armLocked() {
	if c.disarm != nil || c.gestures == nil || c.closed {
		return
	}
	c.disarm = c.gestures.Once(UnlockGestures, c.onGesture)
}

func (c *Coordinator) onGesture(kind GestureKind) {
	c.mu.Lock()
	// the registration that delivered this gesture is spent
	c.disarm = nil
	c.mu.Unlock()

	log.Debug("Unlock gesture received", "gesture", kind)

	ctx, cancel := context.WithTimeout(context.Background(), c.attemptTimeout)
	defer cancel()
	if c.performUnlock(ctx) {
		return
	}

	c.mu.Lock()
	if !c.unlocked {
		c.armLocked()
	}
	c.mu.Unlock()
}

// expire settles u false when its window closes. Gesture listeners stay
// registered, so a late gesture can still unlock.
func (c *Coordinator) expire(u *Unlock) {
	c.mu.Lock()
	if c.pending == u {
		c.pending = nil
		c.timer = nil
	}
	c.mu.Unlock()

	if u.resolve(false) {
		log.Debug("Unlock request settled", "result", false, "reason", ErrGestureTimeout)
	}
}

// performUnlock runs the unlock sequence. It is a no-op once unlocked.
func (c *Coordinator) performUnlock(ctx context.Context) bool {
	c.unlockMu.Lock()
	defer c.unlockMu.Unlock()

	c.mu.Lock()
	if c.unlocked {
		c.mu.Unlock()
		return true
	}
	c.unlocking = true
	c.mu.Unlock()

	err := c.unlockSequence(ctx)

	c.mu.Lock()
	c.unlocking = false
	if err != nil {
		c.mu.Unlock()
		log.Debug("Unlock attempt failed", "error", err)
		return false
	}

	c.unlocked = true
	c.unlockedAt = c.clock.Now()
	pending := c.pending
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	disarm := c.disarm
	c.disarm = nil
	persist := !c.persisted
	c.persisted = true
	subs := make([]subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	if disarm != nil {
		disarm()
	}

	if persist && c.flags != nil {
		if err := c.flags.Set(true); err != nil {
			log.Warn("Could not persist unlock flag", "error", err)
		}
	}

	log.Info("Audio unlocked", "subscribers", len(subs))
	for _, s := range subs {
		s.fn(true)
	}

	if pending != nil {
		pending.resolve(true)
	}
	return true
}

// unlockSequence creates or resumes the shared context and plays the two
// silent signals through it.
func (c *Coordinator) unlockSequence(ctx context.Context) error {
	if c.backend == nil {
		return ErrHandleUnavailable
	}

	c.mu.Lock()
	shared := c.shared
	c.mu.Unlock()

	if shared == nil {
		created, err := c.backend.NewContext()
		if err != nil {
			return fmt.Errorf("create audio context: %w", err)
		}
		if created == nil {
			return ErrHandleUnavailable
		}
		c.mu.Lock()
		c.shared = created
		c.mu.Unlock()
		shared = created
		log.Debug("Shared audio context created")
	}

	switch shared.State() {
	case ContextClosed:
		return ErrContextClosed
	case ContextSuspended:
		if err := shared.Resume(ctx); err != nil {
			return fmt.Errorf("resume audio context: %w", err)
		}
	}

	if err := shared.PlaySilence(ctx); err != nil {
		return fmt.Errorf("play silent buffer: %w", err)
	}

	clip, err := c.backend.NewSilentClip()
	if err != nil {
		return fmt.Errorf("create silent clip: %w", err)
	}
	if closer, ok := clip.(io.Closer); ok {
		defer closer.Close() //nolint:errcheck
	}
	if err := clip.Play(ctx); err != nil {
		return fmt.Errorf("play silent clip: %w", err)
	}

	return nil
}

func (c *Coordinator) onVisibilityChange(visible bool) {
	c.mu.Lock()
	c.visible = visible
	c.mu.Unlock()

	if visible {
		c.resumeShared()
	}
}

// resumeShared resumes a suspended shared context. A resume denied by the
// limiter is retried once the limiter allows it, if the page is still visible.
func (c *Coordinator) resumeShared() {
	shared := c.SharedContext()
	if shared == nil || shared.State() != ContextSuspended {
		return
	}

	r := c.resumeLimiter.ReserveN(c.clock.Now(), 1)
	if delay := r.DelayFrom(c.clock.Now()); delay > 0 {
		r.CancelAt(c.clock.Now())
		c.mu.Lock()
		if c.resumeRetry == nil && !c.closed {
			c.resumeRetry = c.clock.AfterFunc(delay, c.retryResume)
		}
		c.mu.Unlock()
		log.Debug("Deferring audio context resume", "reason", "rate limited", "delay", delay)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.attemptTimeout)
	defer cancel()
	if err := shared.Resume(ctx); err != nil {
		log.Debug("Audio context resume after visibility change failed", "error", err)
		return
	}
	log.Debug("Audio context resumed after visibility change")
}

func (c *Coordinator) retryResume() {
	c.mu.Lock()
	c.resumeRetry = nil
	visible := c.visible && !c.closed
	c.mu.Unlock()

	if visible {
		c.resumeShared()
	}
}
