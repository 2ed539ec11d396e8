// Package sim simulates a browser's autoplay policy. It lets the
// coordinator and engine run end to end without an audio device: the
// simulate command and integration tests both drive it.
package sim

import (
	"context"
	"sync"

	"github.com/dgnsrekt/autoplay/internal/events"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
	"github.com/dgnsrekt/autoplay/pkg/platform"
)

// Policy is the host's view of user activation. Audible playback and context
// resumption need a prior gesture; muted playback does not, except on iOS
// where the clip also needs inline playback enabled.
type Policy struct {
	platform platform.Info

	mu        sync.Mutex
	activated bool
	contexts  []*Context
	built     int
}

// NewPolicy creates a policy with no user activation yet.
func NewPolicy(info platform.Info) *Policy {
	return &Policy{platform: info}
}

// Activate records a user gesture. Activation is sticky.
func (p *Policy) Activate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activated = true
}

// Activated reports whether a gesture has happened.
func (p *Policy) Activated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activated
}

// ContextsBuilt returns how many audio contexts were constructed.
func (p *Policy) ContextsBuilt() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.built
}

// NewContext implements autoplay.Backend. Like a browser, a context created
// before activation starts suspended.
func (p *Policy) NewContext() (autoplay.AudioContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := autoplay.ContextSuspended
	if p.activated {
		state = autoplay.ContextRunning
	}
	c := &Context{policy: p, state: state}
	p.contexts = append(p.contexts, c)
	p.built++
	return c, nil
}

// NewSilentClip implements autoplay.Backend.
func (p *Policy) NewSilentClip() (autoplay.Clip, error) {
	return p.NewClip("silence"), nil
}

// NewClip creates a simulated clip.
func (p *Policy) NewClip(name string) *Clip {
	return &Clip{policy: p, name: name, volume: 1}
}

// suspendAll mimics hosts that suspend audio when the page is hidden.
func (p *Policy) suspendAll() {
	p.mu.Lock()
	contexts := append([]*Context(nil), p.contexts...)
	p.mu.Unlock()

	for _, c := range contexts {
		c.suspend()
	}
}

func (p *Policy) allows(muted, inline bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.activated {
		return true
	}
	if !muted {
		return false
	}
	return !p.platform.IsIOS || inline
}

// Context is a simulated audio context.
type Context struct {
	policy *Policy

	mu      sync.Mutex
	state   autoplay.ContextState
	resumes int
}

// State implements autoplay.AudioContext.
func (c *Context) State() autoplay.ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resume implements autoplay.AudioContext.
func (c *Context) Resume(context.Context) error {
	if !c.policy.Activated() {
		return autoplay.ErrPolicyBlocked
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == autoplay.ContextClosed {
		return autoplay.ErrContextClosed
	}
	c.state = autoplay.ContextRunning
	c.resumes++
	return nil
}

// PlaySilence implements autoplay.AudioContext.
func (c *Context) PlaySilence(context.Context) error {
	if c.State() != autoplay.ContextRunning {
		return autoplay.ErrPolicyBlocked
	}
	return nil
}

// Resumes returns how many times Resume succeeded.
func (c *Context) Resumes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumes
}

// Suspend pauses the context as a host would when the page is hidden.
func (c *Context) Suspend() error {
	c.suspend()
	return nil
}

func (c *Context) suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == autoplay.ContextRunning {
		c.state = autoplay.ContextSuspended
	}
}

// Clip is a simulated audio element.
type Clip struct {
	policy *Policy
	name   string

	mu      sync.Mutex
	volume  float64
	muted   bool
	inline  bool
	playing bool
	plays   int
}

// Name returns the clip name.
func (c *Clip) Name() string { return c.name }

// Play implements autoplay.Clip.
func (c *Clip) Play(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.plays++
	if !c.policy.allows(c.muted, c.inline) {
		return autoplay.ErrPolicyBlocked
	}
	c.playing = true
	return nil
}

// PrimeInline implements autoplay.InlinePrimer.
func (c *Clip) PrimeInline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inline = true
}

// SetVolume implements autoplay.Clip.
func (c *Clip) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = v
}

// Volume implements autoplay.Clip.
func (c *Clip) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// SetMuted implements autoplay.Clip.
func (c *Clip) SetMuted(m bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = m
}

// Muted implements autoplay.Clip.
func (c *Clip) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Playing reports whether a Play call was accepted.
func (c *Clip) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Plays returns the number of Play calls.
func (c *Clip) Plays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

// Host bundles a policy with the gesture and visibility buses a page would
// provide.
type Host struct {
	Policy     *Policy
	Gestures   *events.GestureBus
	Visibility *events.VisibilityBus
}

// NewHost creates a simulated page for the given user agent.
func NewHost(ua string) *Host {
	return &Host{
		Policy:     NewPolicy(platform.Detect(ua)),
		Gestures:   events.NewGestureBus(),
		Visibility: events.NewVisibilityBus(),
	}
}

// Gesture delivers a user gesture. Activation is granted before listeners
// run, as it is for trusted events in a browser.
func (h *Host) Gesture(kind autoplay.GestureKind) int {
	h.Policy.Activate()
	return h.Gestures.Emit(kind)
}

// Hide sends the page to the background and suspends audio on mobile hosts.
func (h *Host) Hide() {
	if h.Policy.platform.IsMobile {
		h.Policy.suspendAll()
	}
	h.Visibility.Set(false)
}

// Show brings the page back to the foreground.
func (h *Host) Show() {
	h.Visibility.Set(true)
}
