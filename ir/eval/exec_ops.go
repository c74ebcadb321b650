// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eval

import (
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/types/shapes"
)

var unaryFns = map[ops.OpType]func(float64) float64{
	ops.OpTypeAbs:  math.Abs,
	ops.OpTypeNeg:  func(x float64) float64 { return -x },
	ops.OpTypeExp:  math.Exp,
	ops.OpTypeLog:  math.Log,
	ops.OpTypeSqrt: math.Sqrt,
	ops.OpTypeTanh: math.Tanh,
	ops.OpTypeLogistic: func(x float64) float64 {
		return 1 / (1 + math.Exp(-x))
	},
	ops.OpTypeSin: math.Sin,
	ops.OpTypeCos: math.Cos,
	ops.OpTypeSign: func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return x // Preserves 0 and NaN.
	},
	ops.OpTypeFloor: math.Floor,
	ops.OpTypeCeil:  math.Ceil,
	ops.OpTypeRound: math.RoundToEven,
	ops.OpTypeErf:   math.Erf,
}

var binaryFns = map[ops.OpType]func(x, y float64) float64{
	ops.OpTypeAdd: func(x, y float64) float64 { return x + y },
	ops.OpTypeSub: func(x, y float64) float64 { return x - y },
	ops.OpTypeMul: func(x, y float64) float64 { return x * y },
	ops.OpTypeDiv: func(x, y float64) float64 { return x / y },
	ops.OpTypeMax: math.Max,
	ops.OpTypeMin: math.Min,
}

func init() {
	for opType := range unaryFns {
		nodeExecutors[opType] = execUnary
	}
	for opType := range binaryFns {
		nodeExecutors[opType] = execBinary
	}
	nodeExecutors[ops.OpTypeConstant] = execConstant
	nodeExecutors[ops.OpTypeTrace] = execTrace
	nodeExecutors[ops.OpTypeReshape] = execReshape
	nodeExecutors[ops.OpTypeBroadcast] = execBroadcast
	nodeExecutors[ops.OpTypeTranspose] = execTranspose
	nodeExecutors[ops.OpTypeSlice] = execSlice
	nodeExecutors[ops.OpTypeConcatenate] = execConcatenate
	nodeExecutors[ops.OpTypeDotGeneral] = execDotGeneral
	nodeExecutors[ops.OpTypeReduceSum] = execReduceSum
	nodeExecutors[ops.OpTypeCall] = execCall
}

func execConstant(_ *Executor, node *ir.Node, _ [][]float64) []float64 {
	buf, err := NewBuffer(node.Shape(), node.ConstantFlat())
	if err != nil {
		panic(err)
	}
	return buf.Float64s()
}

func execUnary(_ *Executor, node *ir.Node, inputs [][]float64) []float64 {
	fn := unaryFns[node.OpType()]
	output := make([]float64, len(inputs[0]))
	for ii, x := range inputs[0] {
		output[ii] = fn(x)
	}
	return output
}

// execTrace reports the value to the trace sink, and returns it unchanged.
func execTrace(e *Executor, node *ir.Node, inputs [][]float64) []float64 {
	if e.traceSink != nil {
		buf, err := FromFloat64s(node.Shape(), inputs[0])
		if err != nil {
			panic(err)
		}
		e.traceSink(node.TraceTag(), buf)
	}
	return inputs[0]
}

func execBinary(_ *Executor, node *ir.Node, inputs [][]float64) []float64 {
	fn := binaryFns[node.OpType()]
	lhs, rhs := inputs[0], inputs[1]
	output := make([]float64, len(lhs))
	for ii := range output {
		output[ii] = fn(lhs[ii], rhs[ii])
	}
	return output
}

// execReshape returns the input unchanged: reshapes don't move values in row-major order.
func execReshape(_ *Executor, _ *ir.Node, inputs [][]float64) []float64 {
	return inputs[0]
}

func execBroadcast(_ *Executor, node *ir.Node, inputs [][]float64) []float64 {
	input := inputs[0]
	output := make([]float64, 0, node.Shape().Size())
	for len(output) < cap(output) {
		output = append(output, input...)
	}
	return output
}

func execTranspose(_ *Executor, node *ir.Node, inputs [][]float64) []float64 {
	permutation := node.Permutation()
	inputStrides := node.Input(0).Shape().Strides()
	output := make([]float64, node.Shape().Size())
	for outputIdx, indices := range node.Shape().Iter() {
		var inputIdx int
		for axis, index := range indices {
			inputIdx += index * inputStrides[permutation[axis]]
		}
		output[outputIdx] = inputs[0][inputIdx]
	}
	return output
}

func execSlice(_ *Executor, node *ir.Node, inputs [][]float64) []float64 {
	starts, _, strides := node.SliceBounds()
	inputStrides := node.Input(0).Shape().Strides()
	output := make([]float64, node.Shape().Size())
	for outputIdx, indices := range node.Shape().Iter() {
		var inputIdx int
		for axis, index := range indices {
			inputIdx += (starts[axis] + index*strides[axis]) * inputStrides[axis]
		}
		output[outputIdx] = inputs[0][inputIdx]
	}
	return output
}

func execConcatenate(_ *Executor, node *ir.Node, inputs [][]float64) []float64 {
	axis := node.ConcatenateAxis()
	operands := node.Inputs()

	// offsets[i] is the position along axis where operand i starts.
	offsets := make([]int, len(operands))
	for ii := 1; ii < len(operands); ii++ {
		offsets[ii] = offsets[ii-1] + operands[ii-1].Shape().Dimensions[axis]
	}
	operandStrides := make([][]int, len(operands))
	for ii, operand := range operands {
		operandStrides[ii] = operand.Shape().Strides()
	}

	output := make([]float64, node.Shape().Size())
	for outputIdx, indices := range node.Shape().Iter() {
		operandIdx := len(offsets) - 1
		for offsets[operandIdx] > indices[axis] {
			operandIdx--
		}
		var inputIdx int
		for ii, index := range indices {
			if ii == axis {
				index -= offsets[operandIdx]
			}
			inputIdx += index * operandStrides[operandIdx][ii]
		}
		output[outputIdx] = inputs[operandIdx][inputIdx]
	}
	return output
}

func execDotGeneral(_ *Executor, node *ir.Node, inputs [][]float64) []float64 {
	lhsShape, rhsShape := node.Input(0).Shape(), node.Input(1).Shape()
	lhsContracting, rhsContracting := node.ContractingAxes()
	lhsStrides, rhsStrides := lhsShape.Strides(), rhsShape.Strides()
	lhsFree := freeAxes(lhsShape.Rank(), lhsContracting)
	rhsFree := freeAxes(rhsShape.Rank(), rhsContracting)

	// Enumerate once the flat offsets of every combination of contracting indices, on both sides.
	contractingDims := make([]int, len(lhsContracting))
	for ii, axis := range lhsContracting {
		contractingDims[ii] = lhsShape.Dimensions[axis]
	}
	contractingShape := shapes.Make(lhsShape.DType, contractingDims...)
	lhsOffsets := make([]int, contractingShape.Size())
	rhsOffsets := make([]int, contractingShape.Size())
	for flatIdx, indices := range contractingShape.Iter() {
		for ii, index := range indices {
			lhsOffsets[flatIdx] += index * lhsStrides[lhsContracting[ii]]
			rhsOffsets[flatIdx] += index * rhsStrides[rhsContracting[ii]]
		}
	}

	lhs, rhs := inputs[0], inputs[1]
	output := make([]float64, node.Shape().Size())
	for outputIdx, indices := range node.Shape().Iter() {
		var lhsBase, rhsBase int
		for ii, axis := range lhsFree {
			lhsBase += indices[ii] * lhsStrides[axis]
		}
		for ii, axis := range rhsFree {
			rhsBase += indices[len(lhsFree)+ii] * rhsStrides[axis]
		}
		var sum float64
		for ii := range lhsOffsets {
			sum += lhs[lhsBase+lhsOffsets[ii]] * rhs[rhsBase+rhsOffsets[ii]]
		}
		output[outputIdx] = sum
	}
	return output
}

// freeAxes returns the axes in [0, rank) that are not contracting, in order.
func freeAxes(rank int, contractingAxes []int) []int {
	free := make([]int, 0, rank-len(contractingAxes))
	for axis := range rank {
		if !slices.Contains(contractingAxes, axis) {
			free = append(free, axis)
		}
	}
	return free
}

func execReduceSum(_ *Executor, node *ir.Node, inputs [][]float64) []float64 {
	reduceAxes := node.ReduceAxes()
	outputStrides := node.Shape().Strides()
	output := make([]float64, node.Shape().Size())
	for inputIdx, indices := range node.Input(0).Shape().Iter() {
		var outputIdx, outputAxis int
		for axis, index := range indices {
			if slices.Contains(reduceAxes, axis) {
				continue
			}
			outputIdx += index * outputStrides[outputAxis]
			outputAxis++
		}
		output[outputIdx] += inputs[0][inputIdx]
	}
	return output
}

func execCall(e *Executor, node *ir.Node, inputs [][]float64) []float64 {
	target := node.CallTarget()
	if target == nil || target.Root() == nil {
		exceptions.Panicf("eval: invalid call target for %s", node)
	}
	return e.run(target, inputs)
}
