// Package logging builds the prefixed loggers used across the
// application, optionally writing through a rotating file for daemon
// mode.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls log destination and rotation.
type Options struct {
	// File is a rotating log file. Empty writes to stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Writer returns the destination described by opts, plus a close func for
// the rotating file (a no-op for stderr).
func Writer(opts Options) (io.Writer, func() error, error) {
	if opts.File == "" {
		return os.Stderr, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 10),
		MaxBackups: orDefault(opts.MaxBackups, 3),
		MaxAge:     orDefault(opts.MaxAgeDays, 30),
		Compress:   true,
	}
	return lj, lj.Close, nil
}

// New returns a logger with the given bracketed prefix, e.g. "[sync] ".
func New(w io.Writer, prefix string) *log.Logger {
	return log.New(w, prefix, log.LstdFlags)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
