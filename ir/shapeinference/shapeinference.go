// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapeinference calculates the shape resulting from operations and validates its inputs.
//
// The elementwise operations don't change the shape. For the remainder ops, it defines one
// function per OpType.
package shapeinference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/types/shapes"
	"github.com/pkg/errors"
)

// UnaryOp checks the validity of the data type for ops.StandardUnaryOperations and returns either an error or
// the output shape, which is the same as the operand.
func UnaryOp(opType ops.OpType, operand shapes.Shape) (output shapes.Shape, err error) {
	if !ops.StandardUnaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the StandardUnaryOperations set, cannot process it with UnaryOp", opType)
		return
	}
	if !operand.Ok() {
		err = errors.Errorf("invalid shape %s for UnaryOp %s", operand, opType)
		return
	}
	if ops.FloatOperations.Has(opType) && !operand.DType.IsFloat() {
		err = errors.Errorf("float UnaryOp %s must have a float (Float32, Float64, ...) data type as input, got %s", opType, operand)
		return
	}
	output = operand.Clone()
	return
}

// BinaryOp checks that both operands have the same shape, and returns it.
// Implicit broadcasting is not supported: use an explicit Broadcast.
func BinaryOp(opType ops.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	if !ops.StandardBinaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the StandardBinaryOperations set, cannot process it with BinaryOp", opType)
		return
	}
	if !lhsShape.Ok() || !rhsShape.Ok() {
		err = errors.Errorf("invalid shapes %s and %s for BinaryOp %s", lhsShape, rhsShape, opType)
		return
	}
	if !lhsShape.Equal(rhsShape) {
		err = errors.Errorf("BinaryOp %s requires operands of the same shape, got lhs=%s and rhs=%s", opType, lhsShape, rhsShape)
		return
	}
	output = lhsShape.Clone()
	return
}

// ReshapeOp to the given dimensions: trivial output shape, but this function also checks
// that the sizes are the same.
func ReshapeOp(operand shapes.Shape, dims []int) (output shapes.Shape, err error) {
	for _, dim := range dims {
		if dim <= 0 {
			return shapes.Invalid(), errors.Errorf("Reshape() cannot reshape %s to dimensions %v, dimensions must be positive",
				operand, dims)
		}
	}
	output = shapes.Make(operand.DType, dims...)
	if operand.Size() != output.Size() {
		return shapes.Invalid(), errors.Errorf("Reshape() cannot reshape %s to dimensions %v, their size don't match",
			operand, dims)
	}
	return
}

// TransposeOp all axes of the operand.
// There must be one value in permutations for each axis in the operand.
// The output will have: output.Shape.Dimension[ii] = operand.Shape.Dimension[permutations[i]].
func TransposeOp(operand shapes.Shape, permutations []int) (output shapes.Shape, err error) {
	rank := operand.Rank()
	if len(permutations) != rank {
		err = errors.Errorf("Transpose() requires all axes permutations to be defined, operand has shape %s, but %d permutations were given",
			operand, len(permutations))
		return
	}
	if rank == 0 {
		return operand.Clone(), nil
	}

	// Check permutation axes are within range and unique.
	axesSet := slices.Clone(permutations)
	slices.Sort(axesSet)
	for ii, srcAxis := range axesSet {
		if srcAxis < 0 || srcAxis >= rank {
			err = errors.Errorf("invalid permutation axis %d given to Transpose(%s), it must be within the range of its rank",
				srcAxis, operand)
			return
		}
		if ii > 0 && srcAxis == axesSet[ii-1] {
			err = errors.Errorf("invalid permutations given to Transpose(%s, %v), there cannot be any repeated axis, each must appear exactly once",
				operand, permutations)
			return
		}
	}

	output = operand.Clone()
	for axis := range output.Dimensions {
		output.Dimensions[axis] = operand.Dimensions[permutations[axis]]
	}
	return
}

// BroadcastOp adds the prefixDims to the start of the shape.
func BroadcastOp(operand shapes.Shape, prefixDims []int) (output shapes.Shape, err error) {
	if !operand.Ok() {
		err = errors.Errorf("invalid shape %s for BroadcastOp", operand)
		return
	}
	for _, dim := range prefixDims {
		if dim <= 0 {
			err = errors.Errorf("BroadcastOp(%s, %v) requires positive prefix dimensions", operand, prefixDims)
			return
		}
	}
	output = shapes.Make(operand.DType, append(slices.Clone(prefixDims), operand.Dimensions...)...)
	return
}

// ReduceOp removes the reduced axes from the operand shape.
func ReduceOp(operand shapes.Shape, axes []int) (output shapes.Shape, err error) {
	if !operand.Ok() {
		err = errors.Errorf("invalid shape %s for ReduceOp", operand)
		return
	}
	if err = checkAxes("ReduceOp", operand, axes); err != nil {
		return
	}
	output = shapes.Shape{DType: operand.DType}
	for axis, dim := range operand.Dimensions {
		if !slices.Contains(axes, axis) {
			output.Dimensions = append(output.Dimensions, dim)
		}
	}
	return
}

// ConcatenateOp calculates the output shape of a Concatenate operation.
// It takes a slice of input shapes and the dimension along which to concatenate.
func ConcatenateOp(inputs []shapes.Shape, axis int) (output shapes.Shape, err error) {
	if len(inputs) == 0 {
		return shapes.Invalid(), errors.Errorf("ConcatenateOp requires at least one input shape")
	}

	firstShape := inputs[0]
	dtype := firstShape.DType
	rank := firstShape.Rank()
	if dtype == dtypes.InvalidDType {
		return shapes.Invalid(), errors.Errorf("invalid shape %s for first input of ConcatenateOp", firstShape)
	}
	if axis < 0 || axis >= rank {
		return shapes.Invalid(), errors.Errorf("invalid concatenation axis %d for shapes with rank %d", axis, rank)
	}
	output = firstShape.Clone()

	// Validate further inputs and accumulate the concatenation axis size.
	for i := 1; i < len(inputs); i++ {
		currentShape := inputs[i]
		if currentShape.DType != dtype {
			return shapes.Invalid(), errors.Errorf("mismatched DTypes for ConcatenateOp: input #0 has %s, input #%d has %s",
				dtype, i, currentShape.DType)
		}
		if currentShape.Rank() != rank {
			return shapes.Invalid(), errors.Errorf("mismatched ranks for ConcatenateOp: input #0 has rank %d, input #%d has rank %d",
				rank, i, currentShape.Rank())
		}
		for d := 0; d < rank; d++ {
			if d == axis {
				output.Dimensions[d] += currentShape.Dimensions[d]
			} else if currentShape.Dimensions[d] != output.Dimensions[d] {
				return shapes.Invalid(), errors.Errorf("mismatched dimensions for ConcatenateOp at axis %d (non-concatenation axis): input #0 has %d, input #%d has %d",
					d, output.Dimensions[d], i, currentShape.Dimensions[d])
			}
		}
	}
	return output, nil
}

// SliceOp calculates the output shape for a Slice operation.
// It checks that starts, limits, and strides have the correct length (matching operand rank),
// and that the slice parameters are valid for the operand's dimensions.
// Strides must be positive.
func SliceOp(operand shapes.Shape, starts, limits, strides []int) (output shapes.Shape, err error) {
	rank := operand.Rank()
	opName := "SliceOp"
	if !operand.Ok() {
		return shapes.Invalid(), errors.Errorf("%s: invalid operand shape %s", opName, operand)
	}
	if len(starts) != rank {
		return shapes.Invalid(), errors.Errorf("%s: len(starts)=%d, but operand rank is %d", opName, len(starts), rank)
	}
	if len(limits) != rank {
		return shapes.Invalid(), errors.Errorf("%s: len(limits)=%d, but operand rank is %d", opName, len(limits), rank)
	}
	if len(strides) != rank {
		return shapes.Invalid(), errors.Errorf("%s: len(strides)=%d, but operand rank is %d", opName, len(strides), rank)
	}

	output = shapes.Shape{
		DType:      operand.DType,
		Dimensions: make([]int, rank),
	}
	for axis := 0; axis < rank; axis++ {
		start, limit, stride := starts[axis], limits[axis], strides[axis]
		dimSize := operand.Dimensions[axis]
		if stride <= 0 {
			return shapes.Invalid(), errors.Errorf("%s: stride must be positive, but got stride[%d]=%d for operand shape %s",
				opName, axis, stride, operand)
		}
		if start < 0 || start >= dimSize {
			return shapes.Invalid(), errors.Errorf("%s: start index %d is out of bounds for axis %d with size %d (operand shape %s)",
				opName, start, axis, dimSize, operand)
		}
		// Limit can be equal to dimSize.
		if limit <= start || limit > dimSize {
			return shapes.Invalid(), errors.Errorf("%s: limit index %d is out of bounds for axis %d (start=%d, size=%d, operand shape %s)",
				opName, limit, axis, start, dimSize, operand)
		}
		// The first one is always taken, so we use the ceiling of the division.
		output.Dimensions[axis] = (limit - start + (stride - 1)) / stride
	}
	return output, nil
}

// DotGeneralOp returns the shape of a contraction of lhs and rhs over the given contracting axes.
//
// The output axes are the lhs non-contracting axes, in order, followed by the rhs non-contracting axes.
// Contracting axes are matched pairwise and must have the same dimensions.
func DotGeneralOp(lhs shapes.Shape, lhsContractingAxes []int, rhs shapes.Shape, rhsContractingAxes []int) (output shapes.Shape, err error) {
	if !lhs.Ok() || !rhs.Ok() {
		return shapes.Invalid(), errors.Errorf("invalid shapes lhs=%s, rhs=%s for DotGeneral", lhs, rhs)
	}
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), errors.Errorf("DotGeneral lhs (left-hand-side) and rhs operands don't match data types: %s and %s",
			lhs.DType, rhs.DType)
	}
	if len(lhsContractingAxes) != len(rhsContractingAxes) {
		return shapes.Invalid(), errors.Errorf("DotGeneral number of contracting axes for lhs (%d) doesn't match rhs (%d)",
			len(lhsContractingAxes), len(rhsContractingAxes))
	}
	if err = checkAxes("DotGeneral(lhs)", lhs, lhsContractingAxes); err != nil {
		return shapes.Invalid(), err
	}
	if err = checkAxes("DotGeneral(rhs)", rhs, rhsContractingAxes); err != nil {
		return shapes.Invalid(), err
	}
	for ii, lhsAxis := range lhsContractingAxes {
		rhsAxis := rhsContractingAxes[ii]
		if lhs.Dimensions[lhsAxis] != rhs.Dimensions[rhsAxis] {
			return shapes.Invalid(), errors.Errorf("DotGeneral contracting dimensions don't match: lhs[%d]=%d != rhs[%d]=%d",
				lhsAxis, lhs.Dimensions[lhsAxis], rhsAxis, rhs.Dimensions[rhsAxis])
		}
	}

	output = shapes.Shape{DType: lhs.DType}
	for axis, dim := range lhs.Dimensions {
		if !slices.Contains(lhsContractingAxes, axis) {
			output.Dimensions = append(output.Dimensions, dim)
		}
	}
	for axis, dim := range rhs.Dimensions {
		if !slices.Contains(rhsContractingAxes, axis) {
			output.Dimensions = append(output.Dimensions, dim)
		}
	}
	return output, nil
}

// checkAxes validates that axes are within the rank of the shape and not repeated.
func checkAxes(opName string, shape shapes.Shape, axes []int) error {
	for ii, axis := range axes {
		if axis < 0 || axis >= shape.Rank() {
			return errors.Errorf("%s: axis %d is out of range for shape %s", opName, axis, shape)
		}
		if slices.Contains(axes[:ii], axis) {
			return errors.Errorf("%s: axis %d is repeated in %v", opName, axis, axes)
		}
	}
	return nil
}
