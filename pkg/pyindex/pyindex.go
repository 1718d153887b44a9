// Package pyindex implements the Python-style negative-index and slice
// semantics shared by the base table and every view (spec §4.I, §8
// Boundary behaviors, SPEC_FULL §3.10).
package pyindex

import "github.com/kasuganosora/livetable/pkg/tableerr"

// Resolve turns a possibly-negative index into an absolute [0,length)
// index. Resolve(-length) is row 0; Resolve(-length-1) is OutOfRange.
func Resolve(length, i int) (int, error) {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, tableerr.New(tableerr.OutOfRange, "index %d out of range for length %d", i, length)
	}
	return i, nil
}

// Slice resolves a [start:stop) slice with Python semantics: negative
// bounds count from the end, and start >= stop yields an empty range
// rather than an error.
func Slice(length, start, stop int) (int, int, error) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop > length {
		stop = length
	}
	if start > length {
		start = length
	}
	if stop < 0 {
		stop = 0
	}
	if start >= stop {
		return 0, 0, nil
	}
	return start, stop, nil
}
