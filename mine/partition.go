package mine

import "math/bits"

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Index-space partitioning. The whole file leans on one convention: range bounds are uint64 and a
// bound of 0 on the high side means 2^64, the top of the space. That keeps the full space
// representable without widening to big integers, because ranges never wrap anywhere else.

// Span is a contiguous half-open index range [Start, End), where End == 0 closes the range at the
// top of the space. The span {0, 0} is the entire space.
type Span struct {
	Start, End uint64
}

// Partition splits [0, space) into at most k disjoint contiguous spans whose union is exactly the
// space. A space of 0 means the full 2^64. Fewer than k spans are returned only when the space has
// fewer than k indices.
func Partition(space uint64, k int) []Span {
	return partitionBetween(0, space, k)
}

// partitionBetween splits [lo, hi). Unsigned wraparound makes hi-lo the range length even when hi
// is 0 (the top of the space); the sole exception is lo == hi == 0, the full space, whose length
// 2^64 is handled as a special case of boundary.
func partitionBetween(lo, hi uint64, k int) []Span {
	if lo == hi && lo != 0 {
		return nil /* empty range; {0, 0} alone means the full space */
	}
	if k < 1 {
		k = 1
	}
	if length := hi - lo; length != 0 && uint64(k) > length {
		k = int(length)
	}
	spans := make([]Span, k)
	for i := range spans {
		spans[i].Start = boundary(lo, hi, uint64(i), uint64(k))
		spans[i].End = boundary(lo, hi, uint64(i+1), uint64(k))
	}
	return spans
}

// boundary returns lo + floor(i*(hi-lo)/k) without overflow; i ranges over [0, k].
func boundary(lo, hi, i, k uint64) uint64 {
	if i == k {
		return hi
	}
	mHi, mLo := bits.Mul64(i, hi-lo)
	if hi == lo {
		/* Full space: the length is 2^64, so i*length is exactly i<<64. */
		mHi, mLo = i, 0
	}
	q, _ := bits.Div64(mHi, mLo, k)
	return lo + q
}

// hybridSplit reserves the first half of the space for the accelerator and partitions the second
// half among k CPU workers, so the two device classes never test the same index.
func hybridSplit(space uint64, k int) (accel Span, cpu []Span) {
	half := space / 2
	if space == 0 {
		half = 1 << 63
	}
	if half == 0 {
		/* A one-index space has no room to split; the accelerator takes all of it. */
		return Span{0, space}, nil
	}
	return Span{0, half}, partitionBetween(half, space, k)
}
