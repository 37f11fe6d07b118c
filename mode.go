// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package tarpipe

import (
	"fmt"
	"strings"
)

// selectorAuto is the compression selector that enables auto-detection by
// magic bytes
const selectorAuto = "*"

// openMode is a parsed open-mode descriptor of the form "r[:compression]"
type openMode struct {
	// compression is the compression selector: a key of
	// availableDecompressors, selectorAuto, or empty for plain tar
	compression string
}

// parseMode parses an open-mode descriptor. Supported descriptors are "r" and
// "r:*" (auto-detected compression), "r:" (plain tar) and "r:<selector>" for
// each supported compression algorithm.
func parseMode(mode string) (openMode, error) {
	fileMode, compression, found := strings.Cut(mode, ":")
	if fileMode != "r" {
		return openMode{}, fmt.Errorf("unsupported open mode %q: only read modes are supported", mode)
	}
	if !found || compression == selectorAuto {
		return openMode{compression: selectorAuto}, nil
	}
	if compression == "" {
		return openMode{compression: ""}, nil
	}
	if _, ok := availableDecompressors[compression]; !ok {
		return openMode{}, fmt.Errorf("unsupported compression selector %q in open mode %q", compression, mode)
	}
	return openMode{compression: compression}, nil
}
