package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/internal/config"
	"github.com/dgnsrekt/autoplay/internal/session"
	"github.com/dgnsrekt/autoplay/pkg/autoplay"
	"github.com/dgnsrekt/autoplay/pkg/platform"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/viper"
)

// stack is a coordinator and engine wired to one host.
type stack struct {
	coord  *autoplay.Coordinator
	engine *autoplay.Engine
	flags  autoplay.FlagStore
}

type stackOptions struct {
	backend    autoplay.Backend
	gestures   autoplay.GestureSource
	visibility autoplay.VisibilitySource
	platform   platform.Provider
	clock      clockwork.Clock
}

func newStack(cfg *config.Config, e config.Env, o stackOptions) (*stack, error) {
	flags, err := newFlagStore(cfg, e)
	if err != nil {
		return nil, err
	}

	coord := autoplay.NewCoordinator(autoplay.CoordinatorConfig{
		Backend:        o.backend,
		Gestures:       o.gestures,
		Visibility:     o.visibility,
		Flags:          flags,
		Platform:       o.platform,
		Clock:          o.clock,
		UnlockTimeout:  cfg.Unlock.Timeout,
		AttemptTimeout: cfg.Unlock.AttemptTimeout,
	})
	engine := autoplay.NewEngine(autoplay.EngineConfig{
		Contexts:       coord,
		Platform:       coord.Platform(),
		Clock:          o.clock,
		RetryBaseDelay: cfg.Autoplay.RetryBaseDelay,
		UnmuteDelay:    cfg.Autoplay.UnmuteDelay,
		Defaults:       engineDefaults(cfg),
	})

	log.Debug("Autoplay stack ready", "platform", coord.Platform(), "state", coord.State())
	return &stack{coord: coord, engine: engine, flags: flags}, nil
}

func engineDefaults(cfg *config.Config) []autoplay.Option {
	return []autoplay.Option{
		autoplay.WithVolume(cfg.Autoplay.Volume),
		autoplay.WithRetryAttempts(cfg.Autoplay.RetryAttempts),
		autoplay.WithFallbackToMuted(cfg.Autoplay.FallbackToMuted),
	}
}

// newFlagStore picks where the "unlocked in this session" flag lives. The
// session id comes from AUTOPLAY_SESSION so separate invocations in one shell
// session share it.
func newFlagStore(cfg *config.Config, e config.Env) (autoplay.FlagStore, error) {
	if cfg.Session.Ephemeral {
		return session.NewMemoryStore(), nil
	}

	id := e.SessionID
	if id == "" {
		log.Debug("No session id set, keeping the unlock flag in memory", "hint", "export AUTOPLAY_SESSION="+session.NewID())
		return session.NewMemoryStore(), nil
	}
	dir, err := cfg.SessionDir()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	store, err := session.NewFileStore(dir, id)
	if err != nil {
		return nil, fmt.Errorf("unable to open session store: %w", err)
	}
	return store, nil
}

// userAgent picks the flag value, then AUTOPLAY_USER_AGENT.
func userAgent(flag string) platform.Provider {
	if flag != "" {
		return platform.Static(flag)
	}
	return platform.FromEnv{}
}

// liveDefaults holds autoplay options that follow edits to the config file.
type liveDefaults struct {
	opts atomic.Pointer[[]autoplay.Option]
}

func newLiveDefaults(cfg *config.Config) *liveDefaults {
	l := &liveDefaults{}
	l.set(cfg)
	return l
}

func (l *liveDefaults) set(cfg *config.Config) {
	opts := engineDefaults(cfg)
	l.opts.Store(&opts)
}

// Options returns a copy safe to append to.
func (l *liveDefaults) Options() []autoplay.Option {
	return append([]autoplay.Option(nil), *l.opts.Load()...)
}

// watch reloads the config file on change until ctx is done. Only the
// autoplay defaults are applied live; the rest needs a restart.
func (l *liveDefaults) watch(ctx context.Context) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return
	}
	err := config.Watch(ctx, path, func() {
		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not reload configuration", "err", err)
			return
		}
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			log.Warn("Ignoring invalid configuration", "err", err)
			return
		}
		l.set(cfg)
		log.Info("Reloaded autoplay defaults", "volume", cfg.Autoplay.Volume, "retry_attempts", cfg.Autoplay.RetryAttempts)
	})
	if err != nil {
		log.Debug("Configuration watch unavailable", "error", err)
	}
}
