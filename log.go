package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/autoplay/internal/config"
)

// logFile is non-nil once debug logging is on.
var logFile *os.File

// setupLog sends logs to a file when AUTOPLAY_DEBUG is set and discards them
// otherwise. The TUI owns the terminal so logs never go to stderr.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	closer := func() error {
		if logFile == nil {
			return nil
		}
		return logFile.Close() //nolint:wrapcheck
	}

	e, err := config.LoadEnv()
	if err != nil || !e.Debug {
		return closer, nil //nolint:nilerr
	}
	return closer, enableDebugLog()
}

func enableDebugLog() error {
	if logFile != nil {
		return nil
	}
	path, err := config.LogPath()
	if err != nil {
		return err //nolint:wrapcheck
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return err //nolint:wrapcheck
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return err //nolint:wrapcheck
	}
	logFile = f
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	return nil
}
