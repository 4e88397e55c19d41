package internal

import (
	"iter"
)

// IterSeq2Concat yields every pair of each sequence in turn.
// Later sequences may repeat keys of earlier ones; consumers building
// a map from the result see the last value.
func IterSeq2Concat[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for key, value := range seq {
				if !yield(key, value) {
					return
				}
			}
		}
	}
}
