// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"reflect"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorsplit/ir/shapeinference"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/types/shapes"
	"github.com/pkg/errors"
)

// Function is a named graph with an ordered list of parameters and a single root.
type Function struct {
	module     *Module
	name       string
	registered bool

	// nodes are all nodes created within this function. Each node's idx field is its index in this slice.
	// Nodes are created after their inputs, but Function.ReplaceAllUsesWith may later point an earlier
	// node to a newer one: use PostOrder for a topological order.
	nodes []*Node

	// parameters in the order they were created.
	parameters []*Node

	root *Node
}

// Name of the function. It may change when registered in a module, to keep names unique.
func (f *Function) Name() string { return f.name }

// Module that owns the function.
func (f *Function) Module() *Module { return f.module }

// IsRegistered returns whether the function was registered in its module with Module.AddFunction.
func (f *Function) IsRegistered() bool { return f.registered }

// Root returns the node whose value the function returns.
func (f *Function) Root() *Node { return f.root }

// SetRoot sets the node whose value the function returns.
func (f *Function) SetRoot(root *Node) error {
	if _, err := f.checkNodes("SetRoot", root); err != nil {
		return err
	}
	f.root = root
	return nil
}

// Parameters returns the parameter nodes, in order.
func (f *Function) Parameters() []*Node { return slices.Clone(f.parameters) }

// NumParameters returns the number of parameters of the function.
func (f *Function) NumParameters() int { return len(f.parameters) }

// NumNodes returns the number of nodes in the function's arena, including dead ones.
func (f *Function) NumNodes() int { return len(f.nodes) }

// Nodes returns a snapshot of the node arena, including dead nodes.
func (f *Function) Nodes() []*Node { return slices.Clone(f.nodes) }

// newNode adds a new node of the given opType and shape to the function's arena.
func (f *Function) newNode(opType ops.OpType, shape shapes.Shape, data any, inputs ...*Node) *Node {
	n := &Node{
		idx:      len(f.nodes),
		opType:   opType,
		shape:    shape,
		inputs:   slices.Clone(inputs),
		function: f,
		data:     data,
	}
	f.nodes = append(f.nodes, n)
	return n
}

// checkNodes validates that the nodes were created in this function.
func (f *Function) checkNodes(opName string, nodes ...*Node) ([]*Node, error) {
	if f == nil {
		return nil, errors.Errorf("%s: Function is nil (!?), cannot build a graph", opName)
	}
	for idx, node := range nodes {
		if node == nil {
			return nil, errors.Errorf("%s: input #%d is nil!?", opName, idx)
		}
		if node.function != f {
			return nil, errors.Errorf("%s: input #%d (%s) was created in function %q, cannot use it in function %q",
				opName, idx, node, node.function.name, f.name)
		}
		if node.idx >= len(f.nodes) || f.nodes[node.idx] != node {
			return nil, errors.Errorf("%s: input #%d (%s) is no longer part of function %q", opName, idx, node, f.name)
		}
	}
	return nodes, nil
}

// Parameter creates an input parameter for this function. Parameter indices are assigned in creation order.
func (f *Function) Parameter(name string, shape shapes.Shape) (*Node, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("invalid shape %s for Parameter %q", shape, name)
	}
	data := &parameterData{name: name, inputIdx: len(f.parameters)}
	n := f.newNode(ops.OpTypeParameter, shape.Clone(), data)
	f.parameters = append(f.parameters, n)
	return n, nil
}

// Constant creates a constant with the given flat values and the shape defined by the dimensions.
func (f *Function) Constant(flat any, dims ...int) (*Node, error) {
	flatValue := reflect.ValueOf(flat)
	if flatValue.Kind() != reflect.Slice {
		return nil, errors.Errorf("Constant: flat data should be a slice, not %T", flat)
	}
	dtype := dtypes.FromGoType(flatValue.Type().Elem())
	if dtype == dtypes.InvalidDType {
		return nil, errors.Errorf("Constant: flat is a slice of %s, not a supported data type", flatValue.Type().Elem())
	}
	for _, dim := range dims {
		if dim <= 0 {
			return nil, errors.Errorf("Constant: invalid dimensions %v", dims)
		}
	}
	shape := shapes.Make(dtype, dims...)
	if shape.Size() != flatValue.Len() {
		return nil, errors.Errorf("Constant: flat ([%d]%s) and shape size (%d) mismatch", flatValue.Len(), dtype, shape.Size())
	}
	return f.newNode(ops.OpTypeConstant, shape, &constantData{flat: flat}), nil
}

// Unary adds an elementwise unary operation.
func (f *Function) Unary(opType ops.OpType, x *Node) (*Node, error) {
	if opType == ops.OpTypeTrace {
		return f.Trace(x, "")
	}
	return f.addNode(opType, nil, x)
}

// Trace adds an elementwise identity that reports the value of x, tagged, when executed.
func (f *Function) Trace(x *Node, tag string) (*Node, error) {
	return f.addNode(ops.OpTypeTrace, &traceData{tag: tag}, x)
}

// Binary adds an elementwise binary operation. Both operands must have the same shape.
func (f *Function) Binary(opType ops.OpType, lhs, rhs *Node) (*Node, error) {
	return f.addNode(opType, nil, lhs, rhs)
}

// Reshape x to the given dimensions, which must have the same total size.
func (f *Function) Reshape(x *Node, dims ...int) (*Node, error) {
	return f.addNode(ops.OpTypeReshape, reshapeData(slices.Clone(dims)), x)
}

// Broadcast prepends prefixDims to x, repeating its values.
func (f *Function) Broadcast(x *Node, prefixDims ...int) (*Node, error) {
	return f.addNode(ops.OpTypeBroadcast, prefixDimsData(slices.Clone(prefixDims)), x)
}

// Transpose axes of x.
// There must be one value in permutation for each axis in the operand.
// The output will have: output.Shape.Dimension[ii] = operand.Shape.Dimension[permutation[i]].
func (f *Function) Transpose(x *Node, permutation ...int) (*Node, error) {
	return f.addNode(ops.OpTypeTranspose, transposeData(slices.Clone(permutation)), x)
}

// Slice extracts the sub-array of x given by starts (inclusive), limits (exclusive) and strides,
// one value per axis.
func (f *Function) Slice(x *Node, starts, limits, strides []int) (*Node, error) {
	data := &sliceData{starts: slices.Clone(starts), limits: slices.Clone(limits), strides: slices.Clone(strides)}
	return f.addNode(ops.OpTypeSlice, data, x)
}

// Concatenate joins the operands along the given axis.
func (f *Function) Concatenate(axis int, operands ...*Node) (*Node, error) {
	return f.addNode(ops.OpTypeConcatenate, concatenateData(axis), operands...)
}

// DotGeneral contracts lhs and rhs over the given pairs of contracting axes. The output axes are the
// lhs non-contracting axes followed by the rhs non-contracting axes.
func (f *Function) DotGeneral(lhs *Node, lhsContractingAxes []int, rhs *Node, rhsContractingAxes []int) (*Node, error) {
	data := &dotGeneralData{
		lhsContractingAxes: slices.Clone(lhsContractingAxes),
		rhsContractingAxes: slices.Clone(rhsContractingAxes),
	}
	return f.addNode(ops.OpTypeDotGeneral, data, lhs, rhs)
}

// ReduceSum sums x over the given axes.
func (f *Function) ReduceSum(x *Node, axes ...int) (*Node, error) {
	return f.addNode(ops.OpTypeReduceSum, axesData(slices.Clone(axes)), x)
}

// Call creates a node calling target with the given inputs. The target must be registered in the same
// module, and the inputs must match its parameters' shapes.
func (f *Function) Call(target *Function, inputs ...*Node) (*Node, error) {
	return f.addNode(ops.OpTypeCall, &callData{target: target}, inputs...)
}

// addNode validates the inputs, infers the output shape and creates the node.
func (f *Function) addNode(opType ops.OpType, data any, inputs ...*Node) (*Node, error) {
	if _, err := f.checkNodes(opType.String(), inputs...); err != nil {
		return nil, err
	}
	shape, err := f.inferShape(opType, data, inputs)
	if err != nil {
		return nil, err
	}
	return f.newNode(opType, shape, data, inputs...), nil
}

// inferShape returns the output shape of a node with the given opType, data and inputs.
// Parameter and Constant carry their shape: they are not handled here.
func (f *Function) inferShape(opType ops.OpType, data any, inputs []*Node) (shapes.Shape, error) {
	inputShapes := make([]shapes.Shape, len(inputs))
	for ii, input := range inputs {
		inputShapes[ii] = input.shape
	}
	wantInputs := func(n int) error {
		if len(inputs) != n {
			return errors.Errorf("%s requires %d operands, got %d", opType, n, len(inputs))
		}
		return nil
	}
	switch {
	case ops.StandardUnaryOperations.Has(opType):
		if err := wantInputs(1); err != nil {
			return shapes.Invalid(), err
		}
		return shapeinference.UnaryOp(opType, inputShapes[0])
	case ops.StandardBinaryOperations.Has(opType):
		if err := wantInputs(2); err != nil {
			return shapes.Invalid(), err
		}
		return shapeinference.BinaryOp(opType, inputShapes[0], inputShapes[1])
	}
	switch opType {
	case ops.OpTypeReshape:
		if err := wantInputs(1); err != nil {
			return shapes.Invalid(), err
		}
		return shapeinference.ReshapeOp(inputShapes[0], data.(reshapeData))
	case ops.OpTypeBroadcast:
		if err := wantInputs(1); err != nil {
			return shapes.Invalid(), err
		}
		return shapeinference.BroadcastOp(inputShapes[0], data.(prefixDimsData))
	case ops.OpTypeTranspose:
		if err := wantInputs(1); err != nil {
			return shapes.Invalid(), err
		}
		return shapeinference.TransposeOp(inputShapes[0], data.(transposeData))
	case ops.OpTypeSlice:
		if err := wantInputs(1); err != nil {
			return shapes.Invalid(), err
		}
		d := data.(*sliceData)
		return shapeinference.SliceOp(inputShapes[0], d.starts, d.limits, d.strides)
	case ops.OpTypeConcatenate:
		return shapeinference.ConcatenateOp(inputShapes, int(data.(concatenateData)))
	case ops.OpTypeDotGeneral:
		if err := wantInputs(2); err != nil {
			return shapes.Invalid(), err
		}
		d := data.(*dotGeneralData)
		return shapeinference.DotGeneralOp(inputShapes[0], d.lhsContractingAxes, inputShapes[1], d.rhsContractingAxes)
	case ops.OpTypeReduceSum:
		if err := wantInputs(1); err != nil {
			return shapes.Invalid(), err
		}
		return shapeinference.ReduceOp(inputShapes[0], data.(axesData))
	case ops.OpTypeCall:
		return callShape(f, data.(*callData).target, inputShapes)
	}
	return shapes.Invalid(), errors.Errorf("shape inference for %s is not supported", opType)
}

// callShape validates a call from caller to target and returns the target's output shape.
func callShape(caller, target *Function, inputShapes []shapes.Shape) (shapes.Shape, error) {
	if target == nil {
		return shapes.Invalid(), errors.Errorf("Call: target function is nil")
	}
	if target.module != caller.module {
		return shapes.Invalid(), errors.Errorf("Call: target function %q must be from the same module", target.name)
	}
	if !target.registered {
		return shapes.Invalid(), errors.Errorf("Call: target function %q must be registered in the module", target.name)
	}
	if target == caller {
		return shapes.Invalid(), errors.Errorf("Call: function %q cannot call itself", target.name)
	}
	if target.root == nil {
		return shapes.Invalid(), errors.Errorf("Call: target function %q has no root", target.name)
	}
	if len(inputShapes) != len(target.parameters) {
		return shapes.Invalid(), errors.Errorf("Call: function %q expects %d parameters, got %d inputs",
			target.name, len(target.parameters), len(inputShapes))
	}
	for i, param := range target.parameters {
		if !param.shape.Equal(inputShapes[i]) {
			return shapes.Invalid(), errors.Errorf("Call: function %q parameter %d shape %s doesn't match input shape %s",
				target.name, i, param.shape, inputShapes[i])
		}
	}
	return target.root.shape.Clone(), nil
}
