//go:build nocgo
// +build nocgo

package audio

import (
	"context"
	"time"

	"github.com/dgnsrekt/autoplay/pkg/autoplay"
)

// Stub implementations for builds without CGO. The coordinator sees an
// environment with no audio context and stays locked.

// Backend reports that no audio context can be built.
type Backend struct {
	format Format
}

// NewBackend creates a stub backend.
func NewBackend(format Format) *Backend {
	return &Backend{format: format}
}

func (b *Backend) Format() Format { return b.format }

func (b *Backend) NewContext() (autoplay.AudioContext, error) {
	return nil, autoplay.ErrHandleUnavailable
}

func (b *Backend) NewSilentClip() (autoplay.Clip, error) {
	return nil, autoplay.ErrHandleUnavailable
}

func (b *Backend) NewClip(*PCM) (*Clip, error) {
	return nil, autoplay.ErrHandleUnavailable
}

// Context is never constructed in nocgo builds.
type Context struct{}

func (c *Context) Suspend() error { return nil }

// Clip is never constructed in nocgo builds.
type Clip struct{}

func (c *Clip) Play(context.Context) error { return autoplay.ErrHandleUnavailable }
func (c *Clip) SetVolume(float64) {}
func (c *Clip) Volume() float64 { return 0 }
func (c *Clip) SetMuted(bool) {}
func (c *Clip) Muted() bool { return false }
func (c *Clip) Duration() time.Duration { return 0 }
func (c *Clip) Wait(context.Context) error { return nil }
func (c *Clip) Close() error { return nil }
