// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splitter

import (
	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ops"
)

// splitRule handles one kind of node of a splittable chain: it tells whether the chain below the node
// can be split, and rebuilds the node for one chunk inside the split sub-function.
//
// Both methods are kept on the same rule so the analysis and the rebuilding always accept the
// same chains.
type splitRule interface {
	canSplit(node *ir.Node) bool
	build(b *graphBuilder, node *ir.Node, splitAxis int) *ir.Node
}

type (
	// dotRule is the base of every chain: the contraction that produces the large tensor.
	dotRule struct{}

	// unaryRule handles elementwise unary ops without side effects.
	unaryRule struct{}

	// transposeRule handles transposes, which move the split axis.
	transposeRule struct{}
)

// ruleFor returns the splitRule for the node's kind, or nil if nodes of this kind can't be split.
func ruleFor(node *ir.Node) splitRule {
	opType := node.OpType()
	switch {
	case opType == ops.OpTypeDotGeneral:
		return dotRule{}
	case opType == ops.OpTypeTranspose:
		return transposeRule{}
	case ops.StandardUnaryOperations.Has(opType) && !node.HasSideEffect():
		return unaryRule{}
	}
	return nil
}

// ShouldSplit returns whether the node's output is larger than the configured ceiling.
func (s *Splitter) ShouldSplit(node *ir.Node) bool {
	return ElementCount(node.Shape()) > s.config.MaxElements
}

// CanSplit returns whether the node can be computed in chunks: it must be a DotGeneral, or a chain
// of side effect free elementwise unary ops and transposes over a DotGeneral.
func CanSplit(node *ir.Node) bool {
	rule := ruleFor(node)
	return rule != nil && rule.canSplit(node)
}

func (dotRule) canSplit(*ir.Node) bool { return true }

func (unaryRule) canSplit(node *ir.Node) bool { return CanSplit(node.Input(0)) }

func (transposeRule) canSplit(node *ir.Node) bool { return CanSplit(node.Input(0)) }
