// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape_Iter(t *testing.T) {
	shape := Make(dtypes.Float32, 1, 1, 1)
	var collect [][]int
	for _, indices := range shape.Iter() {
		collect = append(collect, slices.Clone(indices))
	}
	require.Equal(t, [][]int{{0, 0, 0}}, collect)

	shape = Make(dtypes.Float64, 3, 1, 2)
	collect = nil
	var flat []int
	for flatIdx, indices := range shape.Iter() {
		flat = append(flat, flatIdx)
		collect = append(collect, slices.Clone(indices))
	}
	require.Equal(t, [][]int{
		{0, 0, 0},
		{0, 0, 1},
		{1, 0, 0},
		{1, 0, 1},
		{2, 0, 0},
		{2, 0, 1},
	}, collect)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, flat)

	// Scalar yields exactly once.
	count := 0
	for range Make(dtypes.Float32).Iter() {
		count++
	}
	require.Equal(t, 1, count)
}
