// Package config holds the settings for the unlock coordinator, the autoplay
// engine and the session store, and knows where to find them on disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// AppName is used for config, cache and log locations.
const AppName = "autoplay"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the file-backed configuration.
type Config struct {
	Unlock   UnlockConfig   `yaml:"unlock" mapstructure:"unlock"`
	Autoplay AutoplayConfig `yaml:"autoplay" mapstructure:"autoplay"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	Audio    AudioConfig    `yaml:"audio" mapstructure:"audio"`
}

// UnlockConfig tunes the coordinator.
type UnlockConfig struct {
	// How long EnsureUnlocked waits for a gesture
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Bound on a single unlock sequence, including the startup attempt
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`
}

// AutoplayConfig holds engine defaults.
type AutoplayConfig struct {
	Volume          float64       `yaml:"volume" mapstructure:"volume"`
	RetryAttempts   int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
	UnmuteDelay     time.Duration `yaml:"unmute_delay" mapstructure:"unmute_delay"`
	FallbackToMuted bool          `yaml:"fallback_to_muted" mapstructure:"fallback_to_muted"`
}

// SessionConfig controls where the unlock flag lives.
type SessionConfig struct {
	// Directory for session flag files (defaults to the user cache dir)
	Dir string `yaml:"dir" mapstructure:"dir"`

	// Keep the flag in memory only
	Ephemeral bool `yaml:"ephemeral" mapstructure:"ephemeral"`
}

// AudioConfig describes the shared audio context.
type AudioConfig struct {
	SampleRate int           `yaml:"sample_rate" mapstructure:"sample_rate"`
	Channels   int           `yaml:"channels" mapstructure:"channels"`
	BufferSize time.Duration `yaml:"buffer_size" mapstructure:"buffer_size"`

	// Suspend the shared context when the terminal loses focus
	SuspendOnBlur bool `yaml:"suspend_on_blur" mapstructure:"suspend_on_blur"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Unlock: UnlockConfig{
			Timeout:        30 * time.Second,
			AttemptTimeout: 5 * time.Second,
		},
		Autoplay: AutoplayConfig{
			Volume:          1.0,
			RetryAttempts:   3,
			RetryBaseDelay:  500 * time.Millisecond,
			UnmuteDelay:     100 * time.Millisecond,
			FallbackToMuted: true,
		},
		Audio: AudioConfig{
			SampleRate:    44100,
			Channels:      2,
			SuspendOnBlur: false,
		},
	}
}

// SetDefaults registers the defaults with v so that config files may set
// only some keys.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("unlock.timeout", d.Unlock.Timeout)
	v.SetDefault("unlock.attempt_timeout", d.Unlock.AttemptTimeout)
	v.SetDefault("autoplay.volume", d.Autoplay.Volume)
	v.SetDefault("autoplay.retry_attempts", d.Autoplay.RetryAttempts)
	v.SetDefault("autoplay.retry_base_delay", d.Autoplay.RetryBaseDelay)
	v.SetDefault("autoplay.unmute_delay", d.Autoplay.UnmuteDelay)
	v.SetDefault("autoplay.fallback_to_muted", d.Autoplay.FallbackToMuted)
	v.SetDefault("session.dir", "")
	v.SetDefault("session.ephemeral", false)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("audio.buffer_size", time.Duration(0))
	v.SetDefault("audio.suspend_on_blur", d.Audio.SuspendOnBlur)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Session.Dir = ExpandPath(cfg.Session.Dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Unlock.Timeout <= 0:
		return fmt.Errorf("%w: unlock.timeout must be positive, got %v", ErrInvalidConfig, c.Unlock.Timeout)
	case c.Unlock.AttemptTimeout <= 0:
		return fmt.Errorf("%w: unlock.attempt_timeout must be positive, got %v", ErrInvalidConfig, c.Unlock.AttemptTimeout)
	case c.Autoplay.Volume < 0 || c.Autoplay.Volume > 1:
		return fmt.Errorf("%w: autoplay.volume must be between 0 and 1, got %.2f", ErrInvalidConfig, c.Autoplay.Volume)
	case c.Autoplay.RetryAttempts < 0:
		return fmt.Errorf("%w: autoplay.retry_attempts must not be negative, got %d", ErrInvalidConfig, c.Autoplay.RetryAttempts)
	case c.Autoplay.RetryBaseDelay <= 0:
		return fmt.Errorf("%w: autoplay.retry_base_delay must be positive, got %v", ErrInvalidConfig, c.Autoplay.RetryBaseDelay)
	case c.Autoplay.UnmuteDelay <= 0:
		return fmt.Errorf("%w: autoplay.unmute_delay must be positive, got %v", ErrInvalidConfig, c.Autoplay.UnmuteDelay)
	case c.Audio.SampleRate != 44100 && c.Audio.SampleRate != 48000:
		return fmt.Errorf("%w: audio.sample_rate must be 44100 or 48000, got %d", ErrInvalidConfig, c.Audio.SampleRate)
	case c.Audio.Channels != 1 && c.Audio.Channels != 2:
		return fmt.Errorf("%w: audio.channels must be 1 or 2, got %d", ErrInvalidConfig, c.Audio.Channels)
	}
	return nil
}

// Env holds settings that only come from the environment.
type Env struct {
	SessionID  string `env:"AUTOPLAY_SESSION"`
	UserAgent  string `env:"AUTOPLAY_USER_AGENT"`
	Debug      bool   `env:"AUTOPLAY_DEBUG"`
	ConfigHome string `env:"AUTOPLAY_CONFIG_HOME"`
	XDGConfig  string `env:"XDG_CONFIG_HOME"`
}

// LoadEnv reads the environment, after loading a .env file from the working
// directory if there is one.
func LoadEnv() (Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Env{}, fmt.Errorf("load .env: %w", err)
	}
	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}

// Dirs returns the directories searched for autoplay.yml, most specific
// first.
func (e Env) Dirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("find config directories: %w", err)
	}
	if e.XDGConfig != "" {
		dirs = append([]string{filepath.Join(e.XDGConfig, AppName)}, dirs...)
	}
	if e.ConfigHome != "" {
		dirs = append([]string{e.ConfigHome}, dirs...)
	}
	return dirs, nil
}

// SessionDir returns the directory for session flag files.
func (c *Config) SessionDir() (string, error) {
	if c.Session.Dir != "" {
		return c.Session.Dir, nil
	}
	dir, err := gap.NewScope(gap.User, AppName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("find cache directory: %w", err)
	}
	return filepath.Join(dir, "sessions"), nil
}

// LogPath returns the debug log location.
func LogPath() (string, error) {
	return gap.NewScope(gap.User, AppName).LogPath("autoplay.log")
}

// ExpandPath expands a leading ~ and environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	expanded, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return path
	}
	return expanded
}
