package internal

import (
	"iter"
	"slices"
)

// IterSeqConcat concatenates multiple iterators into a single iterator sequence.
func IterSeqConcat[T any](seqs ...iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, seq := range seqs {
			for val := range seq {
				if !yield(val) {
					return // Stop if the consumer stops
				}
			}
		}
	}
}

// IterPermutations iterates over every ordering of values, using Heap's
// algorithm. Each yielded slice is a fresh copy owned by the consumer.
func IterPermutations[T any](values []T) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		perm := slices.Clone(values)
		if !yield(slices.Clone(perm)) {
			return
		}

		count := make([]int, len(perm))
		for n := 1; n < len(perm); {
			if count[n] < n {
				if n%2 == 0 {
					perm[0], perm[n] = perm[n], perm[0]
				} else {
					perm[count[n]], perm[n] = perm[n], perm[count[n]]
				}
				if !yield(slices.Clone(perm)) {
					return
				}
				count[n]++
				n = 1
			} else {
				count[n] = 0
				n++
			}
		}
	}
}

// IterRange iterates from low to high inclusive, without overflowing at
// the limits of T.
func IterRange[T ~int | ~int32 | ~int64](low, high T) iter.Seq[T] {
	return func(yield func(T) bool) {
		if low > high {
			return
		}
		for val := low; ; val++ {
			if !yield(val) || val == high {
				return
			}
		}
	}
}
