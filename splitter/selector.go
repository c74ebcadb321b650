// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splitter

import (
	"slices"

	"github.com/gomlx/tensorsplit/ir"
)

// BestSplitDim returns the axis of node to split: the largest one, not in excludedAxes, for which
// BestSplitSize finds a chunk size. Ties are won by the lowest axis.
// It returns false if no axis can be split.
func (s *Splitter) BestSplitDim(node *ir.Node, excludedAxes []int) (axis int, ok bool) {
	axis = -1
	bestDim := -1
	for candidate, dim := range node.Shape().Dimensions {
		if slices.Contains(excludedAxes, candidate) || dim <= bestDim {
			continue
		}
		if _, found := s.BestSplitSize(node, candidate); found {
			axis, bestDim = candidate, dim
		}
	}
	return axis, axis >= 0
}

// BestSplitSize returns the chunk size to split the node's axis into, see BestChunkSize.
func (s *Splitter) BestSplitSize(node *ir.Node, axis int) (chunkSize int, ok bool) {
	shape := node.Shape()
	dim := shape.Dimensions[axis]
	rest := ElementCount(shape) / dim
	return BestChunkSize(dim, s.config.MaxElements, s.config.TargetElements, rest)
}
