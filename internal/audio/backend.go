//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
	"github.com/ebitengine/oto/v3"
)

const (
	silentClipLength = 50 * time.Millisecond
	pollInterval     = 10 * time.Millisecond
)

// Backend implements autoplay.Backend on top of oto.
type Backend struct {
	format Format

	mu  sync.Mutex
	ctx *Context
}

// NewBackend creates a backend. No audio device is touched until the
// coordinator asks for the shared context.
func NewBackend(format Format) *Backend {
	return &Backend{format: format}
}

// Format returns the PCM layout clips must use.
func (b *Backend) Format() Format {
	return b.format
}

// NewContext implements autoplay.Backend. oto allows a single context per
// process, so repeated calls return the same one.
func (b *Backend) NewContext() (autoplay.AudioContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx != nil {
		return b.ctx, nil
	}

	options := &oto.NewContextOptions{
		SampleRate:   b.format.SampleRate,
		ChannelCount: b.format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   b.format.bufferSize(),
	}
	log.Debug("Initializing audio context",
		"sample_rate", options.SampleRate,
		"channels", options.ChannelCount,
		"buffer_size", options.BufferSize)

	otoCtx, ready, err := oto.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", autoplay.ErrHandleUnavailable, err)
	}

	b.ctx = &Context{oto: otoCtx, ready: ready, format: b.format}
	return b.ctx, nil
}

// NewSilentClip implements autoplay.Backend.
func (b *Backend) NewSilentClip() (autoplay.Clip, error) {
	return b.NewClip(&PCM{
		Data:     b.format.Silence(silentClipLength),
		Duration: silentClipLength,
	})
}

// NewClip wraps decoded audio in a playable clip. The shared context must
// exist.
func (b *Backend) NewClip(pcm *PCM) (*Clip, error) {
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	if ctx == nil {
		return nil, autoplay.ErrHandleUnavailable
	}
	return &Clip{
		ctx:      ctx,
		player:   ctx.oto.NewPlayer(bytes.NewReader(pcm.Data)),
		duration: pcm.Duration,
		volume:   1.0,
	}, nil
}

// Context wraps the process-wide oto context. It reports suspended until the
// host signals the device is ready, which on the web happens after the first
// user gesture.
type Context struct {
	oto    *oto.Context
	ready  chan struct{}
	format Format

	mu        sync.Mutex
	suspended bool
}

func (c *Context) isReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// State implements autoplay.AudioContext.
func (c *Context) State() autoplay.ContextState {
	if c.oto.Err() != nil {
		return autoplay.ContextClosed
	}
	if !c.isReady() {
		return autoplay.ContextSuspended
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended {
		return autoplay.ContextSuspended
	}
	return autoplay.ContextRunning
}

// Resume implements autoplay.AudioContext. It waits for the device to become
// ready, bounded by ctx.
func (c *Context) Resume(ctx context.Context) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return fmt.Errorf("audio device not ready: %w", autoplay.ErrPolicyBlocked)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.suspended {
		return nil
	}
	if err := c.oto.Resume(); err != nil {
		return fmt.Errorf("resume audio context: %w", err)
	}
	c.suspended = false
	return nil
}

// Suspend stops audio output until Resume.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended || !c.isReady() {
		return nil
	}
	if err := c.oto.Suspend(); err != nil {
		return fmt.Errorf("suspend audio context: %w", err)
	}
	c.suspended = true
	return nil
}

// PlaySilence implements autoplay.AudioContext.
func (c *Context) PlaySilence(ctx context.Context) error {
	if c.State() != autoplay.ContextRunning {
		return autoplay.ErrPolicyBlocked
	}

	p := c.oto.NewPlayer(bytes.NewReader(c.format.Silence(0)))
	defer p.Close() //nolint:errcheck
	p.Play()

	return waitPlayer(ctx, p)
}

func waitPlayer(ctx context.Context, p *oto.Player) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return p.Err()
}

// Clip is a single sound played through the shared context.
type Clip struct {
	ctx      *Context
	player   *oto.Player
	duration time.Duration

	mu     sync.Mutex
	volume float64
	muted  bool
}

// Play implements autoplay.Clip. It fails with autoplay.ErrPolicyBlocked
// while the shared context is not running.
func (c *Clip) Play(context.Context) error {
	if c.ctx.State() != autoplay.ContextRunning {
		return autoplay.ErrPolicyBlocked
	}
	c.player.Play()
	return c.player.Err()
}

// SetVolume implements autoplay.Clip.
func (c *Clip) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = volume
	c.applyLocked()
}

// Volume implements autoplay.Clip.
func (c *Clip) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// SetMuted implements autoplay.Clip.
func (c *Clip) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
	c.applyLocked()
}

// Muted implements autoplay.Clip.
func (c *Clip) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *Clip) applyLocked() {
	if c.muted {
		c.player.SetVolume(0)
		return
	}
	c.player.SetVolume(c.volume)
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	return c.duration
}

// Wait blocks until the clip finished playing.
func (c *Clip) Wait(ctx context.Context) error {
	return waitPlayer(ctx, c.player)
}

// Close releases the player.
func (c *Clip) Close() error {
	return c.player.Close()
}
