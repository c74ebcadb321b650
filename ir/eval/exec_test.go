// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eval

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/types/shapes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/mat"
)

var MS = shapes.Make

// buildFn builds and registers a function with one parameter per shape, whose root is returned by build.
func buildFn(t *testing.T, module *ir.Module, name string, build func(fn *ir.Function, params []*ir.Node) (*ir.Node, error), paramShapes ...shapes.Shape) *ir.Function {
	t.Helper()
	fn := module.NewFunction(name)
	params := make([]*ir.Node, len(paramShapes))
	for ii, shape := range paramShapes {
		params[ii] = must.M1(fn.Parameter(fmt.Sprintf("p%d", ii), shape))
	}
	root, err := build(fn, params)
	require.NoError(t, err)
	require.NoError(t, fn.SetRoot(root))
	require.NoError(t, module.AddFunction(fn))
	return fn
}

func float64Buffer(t *testing.T, values []float64, dims ...int) *Buffer {
	t.Helper()
	return must.M1(NewBuffer(MS(dtypes.Float64, dims...), values))
}

func TestDotGeneralAgainstGonum(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	for _, dims := range [][3]int{{1, 1, 1}, {3, 4, 5}, {7, 2, 9}, {16, 33, 8}} {
		m, k, n := dims[0], dims[1], dims[2]
		t.Run(fmt.Sprintf("%dx%dx%d", m, k, n), func(t *testing.T) {
			module := ir.NewModule("test")
			fn := buildFn(t, module, "matmul", func(fn *ir.Function, params []*ir.Node) (*ir.Node, error) {
				return fn.DotGeneral(params[0], []int{1}, params[1], []int{0})
			}, MS(dtypes.Float64, m, k), MS(dtypes.Float64, k, n))
			lhs := must.M1(RandomBuffer(rng, MS(dtypes.Float64, m, k)))
			rhs := must.M1(RandomBuffer(rng, MS(dtypes.Float64, k, n)))
			got := must.M1(Execute(fn, lhs, rhs))

			var want mat.Dense
			want.Mul(mat.NewDense(m, k, lhs.Float64s()), mat.NewDense(k, n, rhs.Float64s()))
			assert.InDeltaSlice(t, want.RawMatrix().Data, got.Float64s(), 1e-9)

			// Contracting the lhs on axis 0 is the same as multiplying by the transposed lhs.
			fnT := buildFn(t, module, "matmulT", func(fn *ir.Function, params []*ir.Node) (*ir.Node, error) {
				return fn.DotGeneral(params[0], []int{0}, params[1], []int{0})
			}, MS(dtypes.Float64, k, m), MS(dtypes.Float64, k, n))
			lhsT := must.M1(FromFloat64s(MS(dtypes.Float64, k, m), mat.DenseCopyOf(mat.NewDense(m, k, lhs.Float64s()).T()).RawMatrix().Data))
			gotT := must.M1(Execute(fnT, lhsT, rhs))
			assert.InDeltaSlice(t, want.RawMatrix().Data, gotT.Float64s(), 1e-9)
		})
	}
}

func TestDotGeneralMultipleContractingAxes(t *testing.T) {
	// lhs=[2, 3, 2], rhs=[3, 2, 2]: contract lhs axes {1, 2} with rhs axes {0, 1}.
	module := ir.NewModule("test")
	fn := buildFn(t, module, "dot", func(fn *ir.Function, params []*ir.Node) (*ir.Node, error) {
		return fn.DotGeneral(params[0], []int{1, 2}, params[1], []int{0, 1})
	}, MS(dtypes.Float64, 2, 3, 2), MS(dtypes.Float64, 3, 2, 2))
	lhsValues := make([]float64, 12)
	rhsValues := make([]float64, 12)
	for ii := range lhsValues {
		lhsValues[ii] = float64(ii)
		rhsValues[ii] = float64(ii % 5)
	}
	got := must.M1(Execute(fn, float64Buffer(t, lhsValues, 2, 3, 2), float64Buffer(t, rhsValues, 3, 2, 2)))

	// Equivalent to a matmul of lhs reshaped to [2, 6] by rhs reshaped to [6, 2].
	var want mat.Dense
	want.Mul(mat.NewDense(2, 6, lhsValues), mat.NewDense(6, 2, rhsValues))
	assert.Equal(t, want.RawMatrix().Data, got.Float64s())
}

func TestShapeOps(t *testing.T) {
	module := ir.NewModule("test")
	x := float64Buffer(t, []float64{0, 1, 2, 3, 4, 5}, 2, 3)
	testCases := []struct {
		name  string
		build func(fn *ir.Function, x *ir.Node) (*ir.Node, error)
		want  []float64
		dims  []int
	}{
		{"transpose", func(fn *ir.Function, x *ir.Node) (*ir.Node, error) {
			return fn.Transpose(x, 1, 0)
		}, []float64{0, 3, 1, 4, 2, 5}, []int{3, 2}},
		{"slice", func(fn *ir.Function, x *ir.Node) (*ir.Node, error) {
			return fn.Slice(x, []int{0, 1}, []int{2, 3}, []int{1, 1})
		}, []float64{1, 2, 4, 5}, []int{2, 2}},
		{"strided_slice", func(fn *ir.Function, x *ir.Node) (*ir.Node, error) {
			return fn.Slice(x, []int{0, 0}, []int{2, 3}, []int{1, 2})
		}, []float64{0, 2, 3, 5}, []int{2, 2}},
		{"concatenate_axis1", func(fn *ir.Function, x *ir.Node) (*ir.Node, error) {
			part0, err := fn.Slice(x, []int{0, 0}, []int{2, 1}, []int{1, 1})
			if err != nil {
				return nil, err
			}
			part1, err := fn.Slice(x, []int{0, 1}, []int{2, 3}, []int{1, 1})
			if err != nil {
				return nil, err
			}
			return fn.Concatenate(1, part1, part0)
		}, []float64{1, 2, 0, 4, 5, 3}, []int{2, 3}},
		{"reduce_sum", func(fn *ir.Function, x *ir.Node) (*ir.Node, error) {
			return fn.ReduceSum(x, 0)
		}, []float64{3, 5, 7}, []int{3}},
		{"broadcast_reshape", func(fn *ir.Function, x *ir.Node) (*ir.Node, error) {
			b, err := fn.Broadcast(x, 2)
			if err != nil {
				return nil, err
			}
			return fn.Reshape(b, 12)
		}, []float64{0, 1, 2, 3, 4, 5, 0, 1, 2, 3, 4, 5}, []int{12}},
		{"elementwise", func(fn *ir.Function, x *ir.Node) (*ir.Node, error) {
			neg, err := fn.Unary(ops.OpTypeNeg, x)
			if err != nil {
				return nil, err
			}
			sign, err := fn.Unary(ops.OpTypeSign, neg)
			if err != nil {
				return nil, err
			}
			return fn.Binary(ops.OpTypeMul, sign, x)
		}, []float64{0, -1, -2, -3, -4, -5}, []int{2, 3}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fn := buildFn(t, module, tc.name, func(fn *ir.Function, params []*ir.Node) (*ir.Node, error) {
				return tc.build(fn, params[0])
			}, x.Shape())
			got := must.M1(Execute(fn, x))
			require.NoError(t, got.Shape().CheckDims(tc.dims...))
			assert.Equal(t, tc.want, got.Float64s())
		})
	}
}

func TestCallAndTrace(t *testing.T) {
	module := ir.NewModule("test")
	shape := MS(dtypes.Float32, 2, 2)
	main := module.NewFunction("main")
	require.NoError(t, module.AddFunction(main)) // Entry.
	double := buildFn(t, module, "double", func(fn *ir.Function, params []*ir.Node) (*ir.Node, error) {
		traced, err := fn.Trace(params[0], "input")
		if err != nil {
			return nil, err
		}
		return fn.Binary(ops.OpTypeAdd, traced, traced)
	}, shape)

	x := must.M1(main.Parameter("x", shape))
	c := must.M1(main.Constant([]float32{1, 1, 1, 1}, 2, 2))
	sum := must.M1(main.Binary(ops.OpTypeAdd, x, c))
	require.NoError(t, main.SetRoot(must.M1(main.Call(double, sum))))
	require.NoError(t, ir.Verify(module))

	var traces []string
	executor := New().WithTraceSink(func(tag string, value *Buffer) {
		traces = append(traces, fmt.Sprintf("%s=%v", tag, value.Flat()))
	})
	input := must.M1(NewBuffer(shape, []float32{0, 1, 2, 3}))
	got := must.M1(executor.Execute(main, input))
	assert.Equal(t, []float32{2, 4, 6, 8}, got.Flat())
	assert.Equal(t, []string{"input=[1 2 3 4]"}, traces)

	// Input validation.
	_, err := Execute(main)
	require.Error(t, err)
	_, err = Execute(main, must.M1(NewBuffer(MS(dtypes.Float64, 4), []float64{0, 1, 2, 3})))
	require.Error(t, err)
}

func TestBuffers(t *testing.T) {
	values := []float64{0.5, -1, 2, 1024}
	shape := MS(dtypes.Float16, 4)
	f16 := must.M1(FromFloat64s(shape, values))
	assert.Equal(t, float16.Fromfloat32(-1), f16.Flat().([]float16.Float16)[1])
	assert.Equal(t, values, f16.Float64s())

	bf16 := must.M1(FromFloat64s(shape.WithDType(dtypes.BFloat16), values))
	assert.Equal(t, bfloat16.FromFloat32(2), bf16.Flat().([]bfloat16.BFloat16)[2])
	assert.Equal(t, values, bf16.Float64s())

	diff := must.M1(MaxAbsDiff(f16, must.M1(FromFloat64s(shape, []float64{0.5, -1, 2.5, 1024}))))
	assert.Equal(t, 0.5, diff)
	_, err := MaxAbsDiff(f16, bf16)
	require.Error(t, err)

	_, err = NewBuffer(MS(dtypes.Float32, 3), []float32{1, 2})
	require.Error(t, err)
	_, err = NewBuffer(MS(dtypes.Float32, 2), []float64{1, 2})
	require.Error(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	ints := must.M1(RandomBuffer(rng, MS(dtypes.Int32, 100)))
	for _, v := range ints.Float64s() {
		assert.Equal(t, float64(int64(v)), v)
	}
}
