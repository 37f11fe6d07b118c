// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import (
	"context"
)

// Stage is a streaming tar extraction stage. It draws archive path
// identifiers from an upstream [Source] and produces one [File] per
// regular-file member of each archive, in container order.
//
// A stage holds no state of its own; every call to [Stage.Extract] starts a
// fresh pass over the upstream sequence.
type Stage struct {
	source Source
	config *Config
}

// NewStage creates a [Stage] that draws path identifiers from source. The
// default configuration opens every archive read-only with auto-detected
// compression ("r:*") and reports no length hint.
func NewStage(source Source, opts ...ConfigOption) *Stage {
	return &Stage{
		source: source,
		config: NewConfig(opts...),
	}
}

// Len returns the nominal length hint configured with [WithLength]. It
// returns [ErrLengthNotSupported] if no hint was configured. The hint is
// metadata only and never bounds how many files are actually produced.
func (s *Stage) Len() (int64, error) {
	if s.config.Length() == -1 {
		return 0, ErrLengthNotSupported
	}
	return s.config.Length(), nil
}

// Extract returns an [Iterator] over the (inner path, stream) pairs of all
// regular-file members of all upstream archives. No archive is opened and no
// member is read before the consumer pulls it via [Iterator.Next].
//
// The ctx is checked between pulls; cancellation surfaces as a fatal error on
// the next pull.
func (s *Stage) Extract(ctx context.Context) *Iterator {
	return &Iterator{
		ctx:    ctx,
		source: s.source,
		config: s.config,
	}
}
