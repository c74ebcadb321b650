// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splitter

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/janpfeifer/must"
)

// Names of the parameters of split sub-functions.
const (
	SplitParameterName = "dot_split_tensor"
	JoinParameterName  = "dot_join_tensor"
)

// graphBuilder rebuilds a splittable chain into a sub-function that computes one chunk of it, and
// collects, in the outer function, the values to call the sub-function with for each chunk.
//
// All errors are internal inconsistencies and cause a panic: the caller is responsible for rolling
// back the nodes created.
type graphBuilder struct {
	outer, sub *ir.Function
	chunkSize  int

	// chunkParams holds, for each chunk, the values of the sub-function parameters:
	// index 0 is the slice of the split operand, index 1 the join operand.
	chunkParams [][]*ir.Node

	// baseSplitLhs and baseOperandAxis record which operand of the base DotGeneral was sliced, and along which axis.
	baseSplitLhs    bool
	baseOperandAxis int
}

func newGraphBuilder(outer, sub *ir.Function, chunkSize int) *graphBuilder {
	return &graphBuilder{outer: outer, sub: sub, chunkSize: chunkSize}
}

// build returns the node in the sub-function that computes the chunk of node, split along splitAxis.
// splitAxis is in the node's output space.
func (b *graphBuilder) build(node *ir.Node, splitAxis int) *ir.Node {
	rule := ruleFor(node)
	if rule == nil {
		exceptions.Panicf("splitter: can't build split of %s, only DotGeneral, side effect free elementwise unary and "+
			"Transpose are supported", node)
	}
	return rule.build(b, node, splitAxis)
}

func (dotRule) build(b *graphBuilder, node *ir.Node, splitAxis int) *ir.Node {
	lhs, rhs := node.Input(0), node.Input(1)
	lhsContracting, rhsContracting := node.ContractingAxes()
	lhsFreeRank := lhs.Shape().Rank() - len(lhsContracting)

	splitLhs := splitAxis < lhsFreeRank
	splitOperand, joinOperand := lhs, rhs
	operandAxis := operandAxisOf(lhs.Shape().Rank(), lhsContracting, splitAxis)
	if !splitLhs {
		splitOperand, joinOperand = rhs, lhs
		operandAxis = operandAxisOf(rhs.Shape().Rank(), rhsContracting, splitAxis-lhsFreeRank)
	}
	if operandAxis < 0 {
		exceptions.Panicf("splitter: output axis %d of %s doesn't map to a non-contracting operand axis", splitAxis, node)
	}
	b.baseSplitLhs, b.baseOperandAxis = splitLhs, operandAxis

	// One slice of the split operand per chunk, in the outer function.
	operandShape := splitOperand.Shape()
	extent := operandShape.Dimensions[operandAxis]
	starts := make([]int, operandShape.Rank())
	limits := slices.Clone(operandShape.Dimensions)
	strides := make([]int, operandShape.Rank())
	for axis := range strides {
		strides[axis] = 1
	}
	covered := 0
	for offset := 0; offset < extent; offset += b.chunkSize {
		starts[operandAxis], limits[operandAxis] = offset, offset+b.chunkSize
		slice := must.M1(b.outer.Slice(splitOperand, starts, limits, strides))
		b.chunkParams = append(b.chunkParams, []*ir.Node{slice, joinOperand})
		covered += b.chunkSize
	}
	if covered != extent {
		exceptions.Panicf("splitter: chunks of size %d cover %d elements of axis %d of %s, want %d",
			b.chunkSize, covered, operandAxis, splitOperand, extent)
	}

	splitParam := must.M1(b.sub.Parameter(SplitParameterName, operandShape.WithDim(operandAxis, b.chunkSize)))
	joinParam := must.M1(b.sub.Parameter(JoinParameterName, joinOperand.Shape()))
	if splitParam.ParameterIndex() != 0 || joinParam.ParameterIndex() != 1 {
		exceptions.Panicf("splitter: split sub-function %q parameters created at indices %d and %d, want 0 and 1",
			b.sub.Name(), splitParam.ParameterIndex(), joinParam.ParameterIndex())
	}
	operands := []*ir.Node{splitParam, joinParam}
	if !splitLhs {
		operands = []*ir.Node{joinParam, splitParam}
	}
	return must.M1(b.sub.CloneWithNewOperands(node, node.Shape().WithDim(splitAxis, b.chunkSize), operands...))
}

func (unaryRule) build(b *graphBuilder, node *ir.Node, splitAxis int) *ir.Node {
	operand := b.build(node.Input(0), splitAxis)
	return must.M1(b.sub.CloneWithNewOperands(node, operand.Shape(), operand))
}

func (transposeRule) build(b *graphBuilder, node *ir.Node, splitAxis int) *ir.Node {
	operand := b.build(node.Input(0), node.Permutation()[splitAxis])
	return must.M1(b.sub.CloneWithNewOperands(node, node.Shape().WithDim(splitAxis, b.chunkSize), operand))
}

// operandAxisOf maps the index of a non-contracting axis of a DotGeneral operand, counted among the
// operand's non-contracting axes, to the axis of the operand itself.
func operandAxisOf(rank int, contractingAxes []int, freeIdx int) int {
	for axis := range rank {
		if slices.Contains(contractingAxes, axis) {
			continue
		}
		if freeIdx == 0 {
			return axis
		}
		freeIdx--
	}
	return -1
}

// outputAxisOf is the inverse of operandAxisOf: it returns the position of a non-contracting operand
// axis among the operand's non-contracting axes.
func outputAxisOf(contractingAxes []int, operandAxis int) int {
	outputAxis := operandAxis
	for _, axis := range contractingAxes {
		if axis < operandAxis {
			outputAxis--
		}
	}
	return outputAxis
}
