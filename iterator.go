// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
)

// iteratorState is the extraction state of an [Iterator]
type iteratorState int

const (
	// stateIdle means no archive is open and the next upstream path
	// identifier has not been drawn yet
	stateIdle iteratorState = iota

	// stateOpenPending means a path identifier has been drawn but the
	// archive behind it has not been opened yet
	stateOpenPending

	// stateEnumerating means an archive is open and its members are walked
	stateEnumerating

	// stateExhausted means the upstream sequence ended; terminal
	stateExhausted

	// stateFailed means extraction failed; terminal
	stateFailed
)

// File is one yielded (inner path, stream) pair: a regular-file member of one
// of the upstream archives.
//
// The member data is read through the embedded reader, which borrows the open
// archive stream. It is only valid until the next call to [Iterator.Next] or
// [Iterator.Close]; consumers that need the data afterwards must read it
// fully before advancing.
type File struct {
	// Name is the normalized join of the archive path identifier and the
	// member name, e.g. "/data/a.tar/dir/y.txt"
	Name string

	// Size is the member size as declared by its archive header
	Size int64

	r io.ReadCloser
}

// Read reads the member data from the open archive.
func (f *File) Read(p []byte) (int, error) {
	return f.r.Read(p)
}

// Iterator is a pull-based iterator over the regular-file members of a
// sequence of tar archives. It performs no work ahead of what has been
// pulled: archives are opened and members are walked only inside
// [Iterator.Next].
//
// At most one archive is open at a time. An iterator that is abandoned
// mid-archive should be released with [Iterator.Close].
//
// Iterators are not safe for concurrent use.
type Iterator struct {
	ctx    context.Context
	source Source
	config *Config

	state    iteratorState
	err      error
	pathname string
	handle   *archiveHandle
}

// Next returns the next (inner path, stream) pair. It returns [io.EOF] once
// the upstream sequence is exhausted.
//
// Any failure is fatal: the iterator transitions to a terminal failed state
// and every subsequent call returns the same error. A corrupted archive is
// never skipped in favor of later upstream identifiers.
func (it *Iterator) Next() (*File, error) {
	for {
		switch it.state {

		case stateExhausted:
			return nil, io.EOF

		case stateFailed:
			return nil, it.err

		case stateIdle:
			v, err := it.source.Next()
			if err == io.EOF {
				it.state = stateExhausted
				return nil, io.EOF
			}
			if err != nil {
				return nil, it.fail(fmt.Errorf("cannot draw pathname from upstream: %w", err))
			}
			pathname, ok := v.(string)
			if !ok {
				return nil, it.fail(&TypeMismatchError{Value: v})
			}
			it.pathname = pathname
			it.state = stateOpenPending

		case stateOpenPending:
			handle, err := openArchive(it.config, it.pathname)
			if err != nil {
				it.config.Logger().Warn("unable to open tarfile stream, abort", "archive", it.pathname, "error", err)
				it.reportOpenError(err)
				return nil, it.fail(&OpenError{Path: it.pathname, Err: err})
			}
			it.handle = handle
			it.state = stateEnumerating

		case stateEnumerating:
			if err := it.ctx.Err(); err != nil {
				return nil, it.fail(&ArchiveError{Path: it.pathname, Err: err})
			}

			entry, err := it.handle.walker.Next()
			if err == io.EOF {
				// archive exhausted, move on to the next upstream identifier
				it.release()
				it.state = stateIdle
				continue
			}
			if err != nil {
				it.config.Logger().Warn("unable to extract files from corrupted tarfile stream, abort", "archive", it.pathname, "error", err)
				return nil, it.fail(&ArchiveError{Path: it.pathname, Err: err})
			}

			if !entry.IsRegular() {
				it.handle.td.SkippedEntries++
				continue
			}

			stream, err := entry.Open()
			if err != nil {
				it.config.Logger().Warn("failed to extract file from source tarfile", "member", entry.Name(), "archive", it.pathname, "error", err)
				return nil, it.fail(&ExtractionError{Path: it.pathname, Member: entry.Name(), Err: err})
			}

			it.handle.td.ExtractedFiles++
			return &File{
				Name: innerPath(it.pathname, entry.Name()),
				Size: entry.Size(),
				r:    stream,
			}, nil
		}
	}
}

// Close releases the in-flight archive handle, if any, and moves the iterator
// to a terminal state. It is safe to call multiple times. Close does not
// disturb an already failed iterator, so the failure stays observable.
func (it *Iterator) Close() error {
	it.release()
	if it.state != stateFailed {
		it.state = stateExhausted
	}
	return nil
}

// fail records err as the terminal extraction error, releases the in-flight
// archive handle and returns err.
func (it *Iterator) fail(err error) error {
	if it.handle != nil {
		it.handle.td.ExtractionErrors++
		it.handle.td.LastExtractionError = err
	}
	it.release()
	it.state = stateFailed
	it.err = err
	return err
}

// release closes the open archive handle and submits its telemetry data.
func (it *Iterator) release() {
	if it.handle == nil {
		return
	}
	td := it.handle.td
	td.InputSize = int64(it.handle.input.ReadBytes())
	td.ExtractionDuration = now().Sub(it.handle.started)
	it.handle.close()
	it.handle = nil
	it.config.TelemetryHook()(it.ctx, td)
}

// reportOpenError submits telemetry for an archive that could not be opened.
func (it *Iterator) reportOpenError(err error) {
	it.config.TelemetryHook()(it.ctx, &TelemetryData{
		SourcePath:          it.pathname,
		ExtractedType:       fileExtensionTar,
		ExtractionErrors:    1,
		LastExtractionError: err,
	})
}

// innerPath derives the externally visible identifier of a member: the
// normalized join of the archive path identifier and the member name. This is
// pure string manipulation, no filesystem lookup occurs.
func innerPath(pathname, name string) string {
	return filepath.Join(pathname, name)
}
