// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import (
	"bytes"
	"io"
)

// decompressionFunc is a function that wraps src in a decompressing reader
type decompressionFunc func(src io.Reader) (io.Reader, error)

// headerCheck is a function that checks if the given header matches the expected magic bytes.
type headerCheck func(header []byte) bool

type availableDecompressor struct {
	Decompress  decompressionFunc
	HeaderCheck headerCheck
	MagicBytes  [][]byte
	Offset      int
}

// availableDecompressors is the collection of decompressors with the required
// magic bytes and potential offset, keyed by the compression selector of the
// open-mode descriptor
var availableDecompressors = map[string]availableDecompressor{
	fileExtensionBrotli: {
		Decompress:  decompressBrotliStream,
		HeaderCheck: isBrotli,
	},
	fileExtensionBzip2: {
		Decompress:  decompressBz2Stream,
		HeaderCheck: isBzip2,
		MagicBytes:  magicBytesBzip2,
	},
	fileExtensionGZip: {
		Decompress:  decompressGZipStream,
		HeaderCheck: isGZip,
		MagicBytes:  magicBytesGZip,
	},
	fileExtensionLZ4: {
		Decompress:  decompressLZ4Stream,
		HeaderCheck: isLZ4,
		MagicBytes:  magicBytesLZ4,
	},
	fileExtensionSnappy: {
		Decompress:  decompressSnappyStream,
		HeaderCheck: isSnappy,
		MagicBytes:  magicBytesSnappy,
	},
	fileExtensionXz: {
		Decompress:  decompressXzStream,
		HeaderCheck: isXz,
		MagicBytes:  magicBytesXz,
	},
	fileExtensionZlib: {
		Decompress:  decompressZlibStream,
		HeaderCheck: isZlib,
		MagicBytes:  magicBytesZlib,
	},
	fileExtensionZstd: {
		Decompress:  decompressZstdStream,
		HeaderCheck: isZstd,
		MagicBytes:  magicBytesZstd,
	},
}

// maxHeaderLength is the maximum header length needed to identify all
// decompressors and the tar magic bytes
var maxHeaderLength int

// init calculates the maximum header length
func init() {
	for _, d := range availableDecompressors {
		needs := d.Offset
		for _, mb := range d.MagicBytes {
			if len(mb)+d.Offset > needs {
				needs = len(mb) + d.Offset
			}
		}
		if needs > maxHeaderLength {
			maxHeaderLength = needs
		}
	}

	// the tar magic bytes sit past the end of the first header block
	for _, mb := range magicBytesTar {
		if len(mb)+offsetTar > maxHeaderLength {
			maxHeaderLength = len(mb) + offsetTar
		}
	}
}

// sniffDecompressor identifies the decompressor for the given header by its
// magic bytes and returns its compression selector. It returns false if no
// decompressor matches, which means the stream is not compressed (or
// compressed with an unsniffable algorithm such as brotli).
func sniffDecompressor(header []byte) (string, decompressionFunc, bool) {
	for selector, d := range availableDecompressors {
		if d.HeaderCheck(header) {
			return selector, d.Decompress, true
		}
	}
	return "", nil, false
}

func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	// check all possible magic bytes until match is found
	for _, mb := range magicBytes {
		// check if header is long enough
		if offset+len(mb) > len(data) {
			continue
		}

		// check for byte match
		if bytes.Equal(mb, data[offset:offset+len(mb)]) {
			return true
		}
	}

	// no match found
	return false
}
