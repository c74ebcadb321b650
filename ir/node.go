// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/types/shapes"
)

// Node in a Function graph.
type Node struct {
	// idx in Function.nodes.
	idx      int
	opType   ops.OpType
	shape    shapes.Shape
	inputs   []*Node
	function *Function

	// data for the specific node type.
	data any
}

// Data stored by the various node types.
type (
	parameterData struct {
		name     string
		inputIdx int
	}

	constantData struct {
		// flat is a slice of the dtype of the node.
		flat any
	}

	traceData struct {
		tag string
	}

	sliceData struct {
		starts, limits, strides []int
	}

	dotGeneralData struct {
		lhsContractingAxes, rhsContractingAxes []int
	}

	callData struct {
		target *Function
	}

	// transposeData holds the permutation: output axis i is operand axis permutation[i].
	transposeData []int

	// axesData holds the reduced axes of a ReduceSum.
	axesData []int

	// reshapeData holds the target dimensions of a Reshape.
	reshapeData []int

	// prefixDimsData holds the dimensions prepended by a Broadcast.
	prefixDimsData []int

	// concatenateData holds the concatenation axis.
	concatenateData int
)

// cloneData returns a deep copy of node data that may safely be attached to another node.
func cloneData(data any) any {
	switch d := data.(type) {
	case *sliceData:
		return &sliceData{starts: slices.Clone(d.starts), limits: slices.Clone(d.limits), strides: slices.Clone(d.strides)}
	case *dotGeneralData:
		return &dotGeneralData{
			lhsContractingAxes: slices.Clone(d.lhsContractingAxes),
			rhsContractingAxes: slices.Clone(d.rhsContractingAxes),
		}
	case transposeData:
		return slices.Clone(d)
	case axesData:
		return slices.Clone(d)
	case prefixDimsData:
		return slices.Clone(d)
	case reshapeData:
		return slices.Clone(d)
	case *callData:
		return &callData{target: d.target}
	case *traceData:
		return &traceData{tag: d.tag}
	default:
		return data
	}
}

// OpType of the node.
func (n *Node) OpType() ops.OpType { return n.opType }

// Shape of the node's output.
func (n *Node) Shape() shapes.Shape { return n.shape }

// Index of the node in its function's arena.
func (n *Node) Index() int { return n.idx }

// Function that owns the node.
func (n *Node) Function() *Function { return n.function }

// NumInputs returns the number of operands.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Input returns the i-th operand.
func (n *Node) Input(i int) *Node { return n.inputs[i] }

// Inputs returns a copy of the list of operands.
func (n *Node) Inputs() []*Node { return slices.Clone(n.inputs) }

// IsElementwise returns whether the node applies its operation independently to each element.
func (n *Node) IsElementwise() bool { return n.opType.IsElementwise() }

// HasSideEffect returns whether the node has effects beyond its output value.
func (n *Node) HasSideEffect() bool { return n.opType.HasSideEffect() }

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("#%d %s%s", n.idx, n.opType, n.shape)
}

func (n *Node) assertOpType(method string, opTypes ...ops.OpType) {
	if !slices.Contains(opTypes, n.opType) {
		exceptions.Panicf("Node.%s() called on node %s, only valid for %v", method, n, opTypes)
	}
}

// ParameterIndex returns the position of a Parameter node in its function's parameter list.
func (n *Node) ParameterIndex() int {
	n.assertOpType("ParameterIndex", ops.OpTypeParameter)
	return n.data.(*parameterData).inputIdx
}

// ParameterName returns the name given to a Parameter node.
func (n *Node) ParameterName() string {
	n.assertOpType("ParameterName", ops.OpTypeParameter)
	return n.data.(*parameterData).name
}

// ConstantFlat returns the flat values of a Constant node. Don't modify it.
func (n *Node) ConstantFlat() any {
	n.assertOpType("ConstantFlat", ops.OpTypeConstant)
	return n.data.(*constantData).flat
}

// TraceTag returns the tag of a Trace node.
func (n *Node) TraceTag() string {
	n.assertOpType("TraceTag", ops.OpTypeTrace)
	return n.data.(*traceData).tag
}

// ContractingAxes returns the lhs and rhs contracting axes of a DotGeneral node.
func (n *Node) ContractingAxes() (lhsAxes, rhsAxes []int) {
	n.assertOpType("ContractingAxes", ops.OpTypeDotGeneral)
	d := n.data.(*dotGeneralData)
	return slices.Clone(d.lhsContractingAxes), slices.Clone(d.rhsContractingAxes)
}

// Permutation returns the axes permutation of a Transpose node.
func (n *Node) Permutation() []int {
	n.assertOpType("Permutation", ops.OpTypeTranspose)
	return slices.Clone(n.data.(transposeData))
}

// SliceBounds returns the starts, limits and strides of a Slice node.
func (n *Node) SliceBounds() (starts, limits, strides []int) {
	n.assertOpType("SliceBounds", ops.OpTypeSlice)
	d := n.data.(*sliceData)
	return slices.Clone(d.starts), slices.Clone(d.limits), slices.Clone(d.strides)
}

// ConcatenateAxis returns the axis along which a Concatenate node joins its operands.
func (n *Node) ConcatenateAxis() int {
	n.assertOpType("ConcatenateAxis", ops.OpTypeConcatenate)
	return int(n.data.(concatenateData))
}

// ReduceAxes returns the reduced axes of a ReduceSum node.
func (n *Node) ReduceAxes() []int {
	n.assertOpType("ReduceAxes", ops.OpTypeReduceSum)
	return slices.Clone(n.data.(axesData))
}

// BroadcastPrefixDims returns the dimensions prepended by a Broadcast node.
func (n *Node) BroadcastPrefixDims() []int {
	n.assertOpType("BroadcastPrefixDims", ops.OpTypeBroadcast)
	return slices.Clone(n.data.(prefixDimsData))
}

// CallTarget returns the function called by a Call node, or nil for any other node type.
func (n *Node) CallTarget() *Function {
	if n.opType != ops.OpTypeCall {
		return nil
	}
	return n.data.(*callData).target
}
