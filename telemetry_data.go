// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import (
	"context"
	"encoding/json"
	"time"
)

// TelemetryData holds all telemetry data captured while one archive is walked.
type TelemetryData struct {
	// ExtractedFiles is the number of file streams yielded from the archive
	ExtractedFiles int64 `json:"extracted_files"`

	// ExtractedType is the detected type of the archive, e.g. "tar" or "tar.gz"
	ExtractedType string `json:"extracted_type"`

	// ExtractionDuration is the time the archive was held open
	ExtractionDuration time.Duration `json:"extraction_duration"`

	// ExtractionErrors is the number of errors during extraction
	ExtractionErrors int64 `json:"extraction_errors"`

	// InputSize is the number of bytes read from the archive source
	InputSize int64 `json:"input_size"`

	// LastExtractionError is the last error during extraction
	LastExtractionError error `json:"last_extraction_error"`

	// SkippedEntries is the number of non-regular entries that were skipped
	SkippedEntries int64 `json:"skipped_entries"`

	// SourcePath is the path identifier of the archive
	SourcePath string `json:"source_path"`
}

// String returns a string representation of [TelemetryData].
func (td TelemetryData) String() string {
	b, _ := json.Marshal(td)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (td TelemetryData) MarshalJSON() ([]byte, error) {
	var lastError string
	if td.LastExtractionError != nil {
		lastError = td.LastExtractionError.Error()
	}
	type alias TelemetryData
	return json.Marshal(&struct {
		alias
		LastExtractionError string `json:"last_extraction_error"`
	}{
		alias:               alias(td),
		LastExtractionError: lastError,
	})
}

// TelemetryHook is a function that is called with the telemetry data of an
// archive after the archive has been fully walked, failed or was abandoned.
type TelemetryHook func(context.Context, *TelemetryData)
