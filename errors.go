// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import (
	"errors"
	"fmt"
)

// ErrLengthNotSupported is returned by [Stage.Len] if no nominal length hint
// has been configured.
var ErrLengthNotSupported = errors.New("stage does not have a valid length")

// TypeMismatchError is returned if an upstream [Source] produced a value that
// is not a string path identifier. The check happens before any archive is
// opened.
type TypeMismatchError struct {
	// Value is the offending upstream value
	Value interface{}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("pathname should be of string type, but is type %T", e.Value)
}

// OpenError is returned if an archive could not be opened under the
// configured mode, e.g. because the source is missing, unreadable or not
// recognized as a tar container.
type OpenError struct {
	// Path is the path identifier of the archive
	Path string

	// Err is the underlying cause
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open archive %s: %s", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// ExtractionError is returned if a member claims to be a regular file but no
// data stream could be obtained for it. This is treated as container
// corruption and terminates the sequence.
type ExtractionError struct {
	// Path is the path identifier of the archive
	Path string

	// Member is the name of the offending member
	Member string

	// Err is the underlying cause
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract file %s from source tarfile %s: %s", e.Member, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ArchiveError is returned for any other failure while walking a container,
// e.g. truncated data, a decompression failure or an I/O error mid-read. It
// terminates the sequence.
type ArchiveError struct {
	// Path is the path identifier of the archive
	Path string

	// Err is the underlying cause
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("corrupted tarfile stream %s: %s", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
