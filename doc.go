// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package tarpipe provides a lazy, pull-based extraction stage for data-loading
// pipelines. A [Stage] consumes archive path identifiers from a [Source], opens
// each as a tar container with auto-detected or explicitly selected compression,
// and yields one [File] per regular-file member in container order. Member data
// is streamed directly out of the open archive and is never materialized.
//
// Configuration is done using the [Config], which can be used to set the open
// mode, the logger, the telemetry hook, a nominal length hint, and the maximum
// input size. Per-archive [TelemetryData] is captured during extraction.
//
// The stage is fail-fast: a corrupted archive terminates the whole sequence
// with an error rather than being skipped, so a partial result set is never
// produced silently.
package tarpipe
