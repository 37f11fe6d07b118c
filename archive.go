// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import (
	"archive/tar"
	"fmt"
	"io"
	"time"
)

// archiveHandle is an open archive bound to one path identifier. It owns the
// underlying byte source and the decompression stream; member streams handed
// to the consumer borrow from it and stay readable only while the handle
// remains open.
type archiveHandle struct {
	src     io.ReadCloser
	input   *limitErrorReader
	stream  io.Reader
	walker  archiveWalker
	td      *TelemetryData
	started time.Time
}

// openArchive opens the archive behind pathname according to the configured
// open mode and positions a tar walker on the (possibly decompressed) stream.
func openArchive(cfg *Config, pathname string) (*archiveHandle, error) {
	mode, err := parseMode(cfg.Mode())
	if err != nil {
		return nil, err
	}

	src, err := cfg.Open()(pathname)
	if err != nil {
		return nil, err
	}

	h := &archiveHandle{
		src:     src,
		input:   newLimitErrorReader(src, cfg.MaxInputSize()),
		started: now(),
		td: &TelemetryData{
			SourcePath:    pathname,
			ExtractedType: fileExtensionTar,
		},
	}

	h.stream = h.input
	switch mode.compression {
	case "":
		// plain tar, nothing to wrap

	case selectorAuto:
		hr, err := newHeaderReader(h.input, maxHeaderLength)
		if err != nil {
			src.Close()
			return nil, err
		}
		header := hr.PeekHeader()
		if selector, decompress, ok := sniffDecompressor(header); ok {
			cfg.Logger().Debug("detected compression", "archive", pathname, "compression", selector)
			stream, err := decompress(hr)
			if err != nil {
				src.Close()
				return nil, err
			}
			h.stream = stream
			h.td.ExtractedType = fmt.Sprintf("%s.%s", fileExtensionTar, selector)
		} else {
			// uncompressed input must carry the tar magic; an all-zero or
			// short header is accepted so that empty archives still walk
			if !isTar(header) && !isZeroHeader(header) {
				src.Close()
				return nil, fmt.Errorf("source is not recognized as a tar archive")
			}
			h.stream = hr
		}

	default:
		decompress := availableDecompressors[mode.compression].Decompress
		stream, err := decompress(h.input)
		if err != nil {
			src.Close()
			return nil, err
		}
		h.stream = stream
		h.td.ExtractedType = fmt.Sprintf("%s.%s", fileExtensionTar, mode.compression)
	}

	h.walker = &tarWalker{tr: tar.NewReader(h.stream)}
	return h, nil
}

// close releases the archive handle. The decompression stream is closed
// first, then the underlying byte source.
func (h *archiveHandle) close() error {
	if closer, ok := h.stream.(io.Closer); ok {
		closer.Close()
	}
	return h.src.Close()
}

// isZeroHeader reports whether the header contains no data at all, which is
// the case for empty tar archives that consist only of zero-filled blocks.
func isZeroHeader(header []byte) bool {
	for _, b := range header {
		if b != 0 {
			return false
		}
	}
	return true
}

// now is a function pointer to [time.Now], replaced in tests
var now = time.Now
