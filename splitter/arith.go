// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splitter

import "github.com/gomlx/tensorsplit/types/shapes"

// smallPrimes are the first 64 primes: dimensions are only split along these factors.
var smallPrimes = [64]int{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53,
	59, 61, 67, 71, 73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131,
	137, 139, 149, 151, 157, 163, 167, 173, 179, 181, 191, 193, 197, 199, 211, 223,
	227, 229, 233, 239, 241, 251, 257, 263, 269, 271, 277, 281, 283, 293, 307, 311,
}

// ElementCount returns the number of elements of the shape, the product of its dimensions.
func ElementCount(shape shapes.Shape) int {
	return shape.Size()
}

// BestChunkSize returns the size of the chunks to split a dimension of size dimensionSize into,
// where restOfElementCount is the number of elements of one slice across the dimension.
//
// The chunk size always divides dimensionSize: starting from dimensionSize, it's divided by its small
// prime factors, smallest first, while chunkSize*restOfElementCount > targetElements. It returns false
// if the resulting chunk size is still larger than maxElements.
func BestChunkSize(dimensionSize, maxElements, targetElements, restOfElementCount int) (chunkSize int, ok bool) {
	var multiplicity [len(smallPrimes)]int
	remaining := dimensionSize
	for ii, prime := range smallPrimes {
		for remaining%prime == 0 {
			multiplicity[ii]++
			remaining /= prime
		}
	}

	chunkSize = dimensionSize
	for ii, prime := range smallPrimes {
		for multiplicity[ii] > 0 && chunkSize*restOfElementCount > targetElements {
			chunkSize /= prime
			multiplicity[ii]--
		}
	}
	if chunkSize > maxElements {
		return 0, false
	}
	return chunkSize, true
}
