// (c) Copyright 2018 Hewlett Packard Enterprise Development LP

// Package conversion converts and formats storage sizes.
package conversion

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a size such as "1TiB", "500 GiB" or "2TB".  IEC suffixes are powers of
// 1024, SI suffixes powers of 1000, and a bare number is a byte count.
func ParseSize(s string) (uint64, error) {
	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %v", s, err)
	}
	if size == 0 {
		return 0, fmt.Errorf("invalid size %q: must be greater than zero", s)
	}
	return size, nil
}

// FormatSize renders bytes with IEC units, e.g. "1.0 TiB"
func FormatSize(value int64) string {
	if value < 0 {
		return "-" + humanize.IBytes(uint64(-value))
	}
	return humanize.IBytes(uint64(value))
}
