package autoplay

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"
)

type fakeContext struct {
	mu         sync.Mutex
	state      ContextState
	resumes    int
	silences   int
	resumeErr  error
	silenceErr error
}

func (f *fakeContext) State() ContextState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeContext) setState(s ContextState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *fakeContext) Resume(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	if f.resumeErr != nil {
		return f.resumeErr
	}
	f.state = ContextRunning
	return nil
}

func (f *fakeContext) PlaySilence(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silences++
	return f.silenceErr
}

func (f *fakeContext) counts() (resumes, silences int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resumes, f.silences
}

type fakeBackend struct {
	mu           sync.Mutex
	ctx          *fakeContext
	constructed  int
	newErr       error
	silentErr    error
	silentPlayed int
	silentClosed int
}

// closableClip is a silent clip that records being released.
type closableClip struct {
	*fakeClip
	onClose func()
}

func (c closableClip) Close() error {
	c.onClose()
	return nil
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{ctx: &fakeContext{state: ContextSuspended}}
}

func (b *fakeBackend) NewContext() (AudioContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.newErr != nil {
		return nil, b.newErr
	}
	b.constructed++
	return b.ctx, nil
}

func (b *fakeBackend) NewSilentClip() (Clip, error) {
	b.mu.Lock()
	err := b.silentErr
	b.mu.Unlock()
	clip := &fakeClip{play: func(bool, int) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.silentPlayed++
		return err
	}}
	return closableClip{fakeClip: clip, onClose: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.silentClosed++
	}}, nil
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) constructions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.constructed
}

// fakeClip plays according to play, which receives the muted flag and the
// 1-based index of the call.
type fakeClip struct {
	mu          sync.Mutex
	volume      float64
	muted       bool
	primed      bool
	plays       int
	directPlays int
	play        func(muted bool, n int) error
}

func (c *fakeClip) Play(context.Context) error {
	c.mu.Lock()
	c.plays++
	n := c.plays
	muted := c.muted
	if !muted {
		c.directPlays++
	}
	play := c.play
	c.mu.Unlock()

	if play == nil {
		return nil
	}
	return play(muted, n)
}

func (c *fakeClip) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = v
}

func (c *fakeClip) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *fakeClip) SetMuted(m bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = m
}

func (c *fakeClip) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *fakeClip) PrimeInline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.primed = true
}

func (c *fakeClip) stats() (plays, direct int, primed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays, c.directPlays, c.primed
}

type fakeRegistration struct {
	id int
	fn func(GestureKind)
}

type fakeGestures struct {
	mu            sync.Mutex
	regs          []fakeRegistration
	nextID        int
	registrations int
}

func (g *fakeGestures) Once(_ []GestureKind, fn func(GestureKind)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := g.nextID
	g.regs = append(g.regs, fakeRegistration{id: id, fn: fn})
	g.registrations++
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.regs = slices.DeleteFunc(g.regs, func(r fakeRegistration) bool { return r.id == id })
	}
}

func (g *fakeGestures) emit(kind GestureKind) {
	g.mu.Lock()
	regs := g.regs
	g.regs = nil
	g.mu.Unlock()
	for _, r := range regs {
		r.fn(kind)
	}
}

func (g *fakeGestures) stats() (registrations, active int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registrations, len(g.regs)
}

type fakeVisibility struct {
	mu sync.Mutex
	fn func(bool)
}

func (v *fakeVisibility) OnVisibilityChange(fn func(bool)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fn = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.fn = nil
	}
}

func (v *fakeVisibility) set(visible bool) {
	v.mu.Lock()
	fn := v.fn
	v.mu.Unlock()
	if fn != nil {
		fn(visible)
	}
}

type fakeFlags struct {
	mu    sync.Mutex
	value bool
	gets  int
	sets  int
}

func (f *fakeFlags) Get() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	return f.value, nil
}

func (f *fakeFlags) Set(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.value = v
	return nil
}

type staticContexts struct{ ctx AudioContext }

func (s staticContexts) SharedContext() AudioContext { return s.ctx }

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitSettled(t *testing.T, u *Unlock) bool {
	t.Helper()
	select {
	case <-u.Done():
		return u.Result()
	case <-time.After(time.Second):
		t.Fatal("unlock request did not settle")
		return false
	}
}
