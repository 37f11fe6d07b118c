// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// OpenFunc opens the byte source behind a path identifier. The meaning of the
// identifier is up to the implementation; the default is [os.Open].
type OpenFunc func(pathname string) (io.ReadCloser, error)

// Config holds all configuration options for a [Stage].
//
// The zero value is not usable; construct with [NewConfig] and adjust with
// the option pattern style.
type Config struct {
	// length is a nominal length hint reported by [Stage.Len].
	// Set value to -1 to mark the length as unknown.
	length int64

	// logger stream for extraction
	logger logger

	// maxInputSize is the maximum size of a single archive input.
	// Set value to -1 to disable the check.
	maxInputSize int64

	// mode is the open-mode descriptor of the form "r[:compression]" applied
	// to every archive. The default "r:*" auto-detects the compression.
	mode string

	// open maps a path identifier to its byte source
	open OpenFunc

	// telemetryHook is a function to consume telemetry data after an archive
	// has been fully walked, failed or was abandoned.
	// Important: do not adjust this value after extraction started
	telemetryHook TelemetryHook
}

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style
func NewConfig(opts ...ConfigOption) *Config {
	const (
		length       = -1    // unknown
		maxInputSize = -1    // unlimited
		mode         = "r:*" // read, any compression
	)

	// disable logging by default
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	// setup default values
	config := &Config{
		length:       length,
		logger:       logger,
		maxInputSize: maxInputSize,
		mode:         mode,
		open: func(pathname string) (io.ReadCloser, error) {
			return os.Open(pathname)
		},
	}

	// adjust default values
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithMode options pattern function to set the open-mode descriptor that is
// applied to every archive. The descriptor has the form "r[:compression]",
// e.g. "r" for plain tar, "r:*" for auto-detected compression or "r:gz" for
// gzip compressed tar archives.
func WithMode(mode string) ConfigOption {
	return func(c *Config) {
		c.mode = mode
	}
}

// WithLength options pattern function to set the nominal length hint reported
// by [Stage.Len] (-1 to mark the length as unknown). The hint is metadata
// only and never bounds actual production.
func WithLength(length int64) ConfigOption {
	return func(c *Config) {
		c.length = length
	}
}

// WithLogger options pattern function to set a custom logger
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxInputSize options pattern function to set the maximum input size of
// a single archive in the config (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithOpenFunc options pattern function to set a custom open function for
// path identifiers, e.g. to resolve identifiers against an object store
// instead of the local filesystem.
func WithOpenFunc(open OpenFunc) ConfigOption {
	return func(c *Config) {
		c.open = open
	}
}

// WithTelemetryHook options pattern function to set a telemetry hook
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// Length returns the nominal length hint (-1 if unknown)
func (c *Config) Length() int64 {
	return c.length
}

// Logger returns the logger
func (c *Config) Logger() logger {
	return c.logger
}

// MaxInputSize returns the maximum input size of a single archive
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// Mode returns the open-mode descriptor
func (c *Config) Mode() string {
	return c.mode
}

// Open returns the open function for path identifiers
func (c *Config) Open() OpenFunc {
	return c.open
}

// TelemetryHook returns the telemetry hook, or a no-op hook if none is set
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return func(ctx context.Context, td *TelemetryData) {}
	}
	return c.telemetryHook
}
