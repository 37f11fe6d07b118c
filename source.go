// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import "io"

// Source is the upstream contract of a [Stage]: a lazy sequence of archive
// path identifiers. Next returns [io.EOF] once the sequence is exhausted.
//
// Values are declared as interface{} so that a stage can detect and report
// upstream elements that are not string path identifiers; see
// [TypeMismatchError].
type Source interface {
	Next() (interface{}, error)
}

// sliceSource walks a fixed slice of upstream values
type sliceSource struct {
	values []interface{}
	pos    int
}

func (s *sliceSource) Next() (interface{}, error) {
	if s.pos >= len(s.values) {
		return nil, io.EOF
	}
	v := s.values[s.pos]
	s.pos++
	return v, nil
}

// FromPaths returns a [Source] that produces the given path identifiers in
// order.
func FromPaths(paths ...string) Source {
	values := make([]interface{}, len(paths))
	for i, p := range paths {
		values[i] = p
	}
	return &sliceSource{values: values}
}

// FromValues returns a [Source] that produces the given values in order. The
// values are handed to the stage unchecked, so non-string values surface as
// [TypeMismatchError] during extraction.
func FromValues(values ...interface{}) Source {
	return &sliceSource{values: values}
}
