// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splitter

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ir/irtest"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/types/shapes"
	"github.com/google/go-cmp/cmp"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var MS = shapes.Make

// operandFn builds the operand of the outer DotGeneral from the output of the inner one.
type operandFn func(fn *ir.Function, inner *ir.Node) (*ir.Node, error)

// dotChain describes a module computing DotGeneral(operand(DotGeneral(a, b)), w), with the
// operand on the lhs or rhs of the outer DotGeneral.
type dotChain struct {
	a, b                        shapes.Shape
	aContracting, bContracting  []int
	operand                     operandFn
	operandOnRhs                bool
	w                           shapes.Shape
	opContracting, wContracting []int
}

// build returns the module, its entry function, and the outer DotGeneral.
func (c dotChain) build(t *testing.T) (*ir.Module, *ir.Function, *ir.Node) {
	t.Helper()
	module := ir.NewModule("test")
	fn := module.NewFunction("main")
	a := must.M1(fn.Parameter("a", c.a))
	b := must.M1(fn.Parameter("b", c.b))
	w := must.M1(fn.Parameter("w", c.w))
	inner := must.M1(fn.DotGeneral(a, c.aContracting, b, c.bContracting))
	operand := inner
	if c.operand != nil {
		operand = must.M1(c.operand(fn, inner))
	}
	var dot *ir.Node
	if c.operandOnRhs {
		dot = must.M1(fn.DotGeneral(w, c.wContracting, operand, c.opContracting))
	} else {
		dot = must.M1(fn.DotGeneral(operand, c.opContracting, w, c.wContracting))
	}
	require.NoError(t, fn.SetRoot(dot))
	require.NoError(t, module.AddFunction(fn))
	require.NoError(t, ir.Verify(module))
	return module, fn, dot
}

// matMulChain is lhs = a·b, with a=[m, k] and b=[k, n], followed by lhs·w, with w=[n, p].
func matMulChain(m, k, n, p int, operand operandFn) dotChain {
	return dotChain{
		a: MS(dtypes.Float32, m, k), aContracting: []int{1},
		b: MS(dtypes.Float32, k, n), bContracting: []int{0},
		operand: operand,
		w:       MS(dtypes.Float32, n, p), opContracting: []int{1}, wContracting: []int{0},
	}
}

func newSplitter(t *testing.T, maxElements, targetElements int) *Splitter {
	t.Helper()
	return must.M1(New(WithMaxElements(maxElements), WithTargetElements(targetElements)))
}

func TestConfig(t *testing.T) {
	s := must.M1(New())
	assert.Equal(t, DefaultConfig(), s.Config())
	assert.Equal(t, Config{MaxElements: 1_000_000, TargetElements: 200_000}, s.Config())
	s = must.M1(New(WithConfig(Config{MaxElements: 10, TargetElements: 5})))
	assert.Equal(t, 5, s.Config().TargetElements)

	for _, config := range []Config{{0, 0}, {10, 0}, {-1, -1}, {10, 20}} {
		require.Error(t, config.Validate(), "config %+v should be invalid", config)
		_, err := New(WithConfig(config))
		require.Error(t, err)
	}
	_, err := Run(ir.NewModule("empty"), 10, 20)
	require.Error(t, err)
}

func TestCanSplit(t *testing.T) {
	module := ir.NewModule("test")
	fn := module.NewFunction("main")
	x := must.M1(fn.Parameter("x", MS(dtypes.Float32, 4, 3)))
	y := must.M1(fn.Parameter("y", MS(dtypes.Float32, 3, 4)))
	dot := must.M1(fn.DotGeneral(x, []int{1}, y, []int{0}))
	neg := must.M1(fn.Unary(ops.OpTypeNeg, dot))
	transposed := must.M1(fn.Transpose(neg, 1, 0))
	chain := must.M1(fn.Unary(ops.OpTypeLogistic, transposed))
	traced := must.M1(fn.Trace(dot, "dot"))
	overTrace := must.M1(fn.Unary(ops.OpTypeExp, traced))
	sum := must.M1(fn.Binary(ops.OpTypeAdd, dot, dot))
	reshaped := must.M1(fn.Reshape(dot, 16))
	reduced := must.M1(fn.ReduceSum(dot, 0))

	for _, node := range []*ir.Node{dot, neg, transposed, chain} {
		assert.True(t, CanSplit(node), "CanSplit(%s)", node)
	}
	for _, node := range []*ir.Node{x, traced, overTrace, sum, reshaped, reduced} {
		assert.False(t, CanSplit(node), "CanSplit(%s)", node)
	}

	s := newSplitter(t, 15, 5)
	assert.True(t, s.ShouldSplit(dot))
	assert.False(t, s.ShouldSplit(x))
}

func TestBestSplitDim(t *testing.T) {
	module := ir.NewModule("test")
	fn := module.NewFunction("main")
	s := newSplitter(t, DefaultMaxElements, DefaultTargetElements)

	x := must.M1(fn.Parameter("x", MS(dtypes.Float32, 20000, 128)))
	axis, ok := s.BestSplitDim(x, []int{1})
	require.True(t, ok)
	assert.Equal(t, 0, axis)
	chunk, ok := s.BestSplitSize(x, axis)
	require.True(t, ok)
	assert.Equal(t, 1250, chunk)

	// Excluded axes are never chosen.
	axis, ok = s.BestSplitDim(x, []int{0})
	require.True(t, ok)
	assert.Equal(t, 1, axis)
	_, ok = s.BestSplitDim(x, []int{0, 1})
	assert.False(t, ok)

	// Ties go to the lowest axis.
	square := must.M1(fn.Parameter("square", MS(dtypes.Float32, 2048, 2048)))
	axis, ok = s.BestSplitDim(square, nil)
	require.True(t, ok)
	assert.Equal(t, 0, axis)

	// The largest axis is skipped if it can't be split.
	prime := must.M1(fn.Parameter("prime", MS(dtypes.Float32, 1_000_003, 8)))
	axis, ok = s.BestSplitDim(prime, nil)
	require.True(t, ok)
	assert.Equal(t, 1, axis)
	_, ok = s.BestSplitDim(prime, []int{1})
	assert.False(t, ok)
}

// TestExample1: operands under the ceiling are left alone.
func TestExample1(t *testing.T) {
	chain := dotChain{
		a: MS(dtypes.Float32, 4096, 64), aContracting: []int{1},
		b: MS(dtypes.Float32, 64, 128), bContracting: []int{0},
		w: MS(dtypes.Float32, 128, 4096), opContracting: []int{1}, wContracting: []int{0},
	}
	module, fn, _ := chain.build(t)
	before := ir.ModuleText(module)
	s := newSplitter(t, DefaultMaxElements, DefaultTargetElements)
	changed, err := s.Run(module)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, s.Rewrites())
	assert.Empty(t, cmp.Diff(before, ir.ModuleText(module)))
	assert.Len(t, module.Functions(), 1)
	assert.Equal(t, 5, fn.NumNodes())
}

// TestExample2: a [20000, 128] lhs is split in 16 chunks of 1250 rows.
func TestExample2(t *testing.T) {
	chain := dotChain{
		a: MS(dtypes.Float32, 20000, 64), aContracting: []int{1},
		b: MS(dtypes.Float32, 64, 128), bContracting: []int{0},
		w: MS(dtypes.Float32, 128, 4096), opContracting: []int{1}, wContracting: []int{0},
	}
	module, fn, dot := chain.build(t)
	originalShape := dot.Shape()
	changed, err := Run(module, DefaultMaxElements, DefaultTargetElements)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, ir.Verify(module))

	root := fn.Root()
	require.Equal(t, ops.OpTypeConcatenate, root.OpType())
	assert.Equal(t, 0, root.ConcatenateAxis())
	assert.True(t, root.Shape().Equal(originalShape))
	require.Equal(t, 16, root.NumInputs())

	functions := module.Functions()
	require.Len(t, functions, 2)
	sub := functions[1]
	assert.Equal(t, SubFunctionName, sub.Name())
	params := sub.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, SplitParameterName, params[0].ParameterName())
	assert.True(t, params[0].Shape().Equal(MS(dtypes.Float32, 1250, 64)))
	assert.Equal(t, JoinParameterName, params[1].ParameterName())
	assert.True(t, params[1].Shape().Equal(MS(dtypes.Float32, 64, 128)))
	subRoot := sub.Root()
	require.Equal(t, ops.OpTypeDotGeneral, subRoot.OpType())
	assert.Equal(t, []*ir.Node{params[0], params[1]}, subRoot.Inputs())
	assert.True(t, subRoot.Shape().Equal(MS(dtypes.Float32, 1250, 128)))

	for _, part := range root.Inputs() {
		require.Equal(t, ops.OpTypeDotGeneral, part.OpType())
		assert.True(t, part.Shape().Equal(MS(dtypes.Float32, 1250, 4096)))
		call := part.Input(0)
		require.Equal(t, ops.OpTypeCall, call.OpType())
		assert.Equal(t, sub, call.CallTarget())
		assert.Equal(t, fn.Parameters()[2], part.Input(1))
	}
	assertChunksTile(t, root, 0, 20000)

	// The original dots are dead, and are removed by the dead code elimination.
	removed := fn.RemoveDeadNodes()
	assert.Equal(t, 2, removed)
	require.NoError(t, ir.Verify(module))
}

// assertChunksTile checks that the slices fed to the calls of the concatenated parts cover
// [0, extent) of the sliced axis, in order, without gaps or overlaps.
func assertChunksTile(t *testing.T, concat *ir.Node, axis, extent int) {
	t.Helper()
	offset := 0
	for _, part := range concat.Inputs() {
		var call *ir.Node
		for _, input := range part.Inputs() {
			if input.OpType() == ops.OpTypeCall {
				call = input
			}
		}
		require.NotNil(t, call, "part %s of %s doesn't use a Call", part, concat)
		slice := call.Input(0)
		require.Equal(t, ops.OpTypeSlice, slice.OpType())
		starts, limits, strides := slice.SliceBounds()
		for ii := range starts {
			assert.Equal(t, 1, strides[ii])
			if ii != axis {
				assert.Equal(t, 0, starts[ii])
				assert.Equal(t, slice.Input(0).Shape().Dimensions[ii], limits[ii])
			}
		}
		assert.Equal(t, offset, starts[axis])
		offset = limits[axis]
	}
	assert.Equal(t, extent, offset)
}

// TestExample3: the operand is an elementwise unary of a transpose of a DotGeneral, and the
// split axis moves through the transposition.
func TestExample3(t *testing.T) {
	chain := dotChain{
		a: MS(dtypes.Float32, 6, 4), aContracting: []int{1},
		b: MS(dtypes.Float32, 4, 10), bContracting: []int{0},
		operand: func(fn *ir.Function, inner *ir.Node) (*ir.Node, error) {
			transposed, err := fn.Transpose(inner, 1, 0) // [10, 6]
			if err != nil {
				return nil, err
			}
			return fn.Unary(ops.OpTypeNeg, transposed)
		},
		w: MS(dtypes.Float32, 6, 3), opContracting: []int{1}, wContracting: []int{0},
	}
	module, fn, _ := chain.build(t)
	s := newSplitter(t, 50, 30)
	require.True(t, irtest.RunPassAndCompare(t, module, s, 3, 1e-5))

	rewrites := s.Rewrites()
	require.Len(t, rewrites, 1)
	rewrite := rewrites[0]
	assert.Equal(t, SideLhs, rewrite.Side)
	assert.Equal(t, 0, rewrite.OperandAxis)
	assert.Equal(t, 0, rewrite.OutputAxis)
	assert.Equal(t, 5, rewrite.ChunkSize)
	assert.Equal(t, 2, rewrite.NumChunks)
	assert.Equal(t, 30, rewrite.ChunkElements)
	assert.Equal(t, 60, rewrite.OperandElements)

	// Axis 0 of the operand is axis 1 of the inner DotGeneral, which comes from its rhs: b is sliced
	// along its axis 1, and the sub-function computes Neg(Transpose(DotGeneral(a, slice))).
	sub := module.Function(rewrite.SubFunction)
	require.NotNil(t, sub)
	params := sub.Parameters()
	assert.True(t, params[0].Shape().Equal(MS(dtypes.Float32, 4, 5)))
	assert.True(t, params[1].Shape().Equal(MS(dtypes.Float32, 6, 4)))
	neg := sub.Root()
	require.Equal(t, ops.OpTypeNeg, neg.OpType())
	assert.True(t, neg.Shape().Equal(MS(dtypes.Float32, 5, 6)))
	transposed := neg.Input(0)
	require.Equal(t, ops.OpTypeTranspose, transposed.OpType())
	assert.Equal(t, []int{1, 0}, transposed.Permutation())
	innerDot := transposed.Input(0)
	require.Equal(t, ops.OpTypeDotGeneral, innerDot.OpType())
	assert.Equal(t, []*ir.Node{params[1], params[0]}, innerDot.Inputs())
	assertChunksTile(t, fn.Root(), 1, 10)
}

func TestSideEffectsAreNotSplit(t *testing.T) {
	chain := matMulChain(12, 5, 8, 3, func(fn *ir.Function, inner *ir.Node) (*ir.Node, error) {
		traced, err := fn.Trace(inner, "inner")
		if err != nil {
			return nil, err
		}
		return fn.Unary(ops.OpTypeTanh, traced)
	})
	module, _, _ := chain.build(t)
	before := ir.ModuleText(module)
	changed, err := Run(module, 64, 30)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, cmp.Diff(before, ir.ModuleText(module)))
}

func TestLargePrimeBailOut(t *testing.T) {
	chain := dotChain{
		a: MS(dtypes.Float32, 1_000_003, 1), aContracting: []int{1},
		b: MS(dtypes.Float32, 1, 1), bContracting: []int{0},
		w: MS(dtypes.Float32, 1, 2), opContracting: []int{1}, wContracting: []int{0},
	}
	module, _, _ := chain.build(t)
	before := ir.ModuleText(module)
	changed, err := Run(module, DefaultMaxElements, DefaultTargetElements)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, cmp.Diff(before, ir.ModuleText(module)))
	assert.Len(t, module.Functions(), 1)
}

func TestIdempotence(t *testing.T) {
	module, _, _ := matMulChain(12, 5, 8, 3, nil).build(t)
	s := newSplitter(t, 64, 30)
	changed, err := ir.RunPasses(module, s, ir.DeadCodeElimination{})
	require.NoError(t, err)
	require.True(t, changed)
	afterFirst := ir.ModuleText(module)

	// The split chunks are below the ceiling, and their operands are Calls: nothing is left to split.
	changed, err = ir.RunPasses(module, s, ir.DeadCodeElimination{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, s.Rewrites())
	assert.Empty(t, cmp.Diff(afterFirst, ir.ModuleText(module)))
}

func TestLhsIsPreferred(t *testing.T) {
	module := ir.NewModule("test")
	fn := module.NewFunction("main")
	a := must.M1(fn.Parameter("a", MS(dtypes.Float32, 12, 2)))
	b := must.M1(fn.Parameter("b", MS(dtypes.Float32, 2, 8)))
	c := must.M1(fn.Parameter("c", MS(dtypes.Float32, 8, 2)))
	d := must.M1(fn.Parameter("d", MS(dtypes.Float32, 2, 12)))
	lhs := must.M1(fn.DotGeneral(a, []int{1}, b, []int{0}))
	rhs := must.M1(fn.DotGeneral(c, []int{1}, d, []int{0}))
	require.NoError(t, fn.SetRoot(must.M1(fn.DotGeneral(lhs, []int{1}, rhs, []int{0}))))
	require.NoError(t, module.AddFunction(fn))

	s := newSplitter(t, 64, 30)
	require.True(t, irtest.RunPassAndCompare(t, module, s, 2, 1e-5))
	rewrites := s.Rewrites()
	require.Len(t, rewrites, 1)
	assert.Equal(t, SideLhs, rewrites[0].Side)
}

func TestBuildUnsupportedPanics(t *testing.T) {
	module := ir.NewModule("test")
	fn := module.NewFunction("main")
	x := must.M1(fn.Parameter("x", MS(dtypes.Float32, 4, 4)))
	reshaped := must.M1(fn.Reshape(x, 16))
	builder := newGraphBuilder(fn, module.NewFunction(SubFunctionName), 4)
	err := exceptions.TryCatch[error](func() { builder.build(reshaped, 0) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't build split")
}

func TestRollback(t *testing.T) {
	module, fn, dot := matMulChain(12, 5, 8, 3, nil).build(t)
	before := ir.ModuleText(module)
	numNodes := fn.NumNodes()
	s := newSplitter(t, 64, 30)

	// Build part of a rewrite, as if it failed midway: the sub-function is registered and called.
	attempt := newDotRewrite(s, fn, dot)
	attempt.sub = module.NewFunction(SubFunctionName)
	builder := newGraphBuilder(fn, attempt.sub, 3)
	require.NoError(t, attempt.sub.SetRoot(builder.build(dot.Input(0), 0)))
	require.NoError(t, module.AddFunction(attempt.sub))
	_ = must.M1(fn.Call(attempt.sub, builder.chunkParams[0]...))
	require.Greater(t, fn.NumNodes(), numNodes)

	require.NoError(t, attempt.rollback())
	assert.Equal(t, numNodes, fn.NumNodes())
	assert.Len(t, module.Functions(), 1)
	assert.False(t, attempt.sub.IsRegistered())
	require.NoError(t, ir.Verify(module))
	assert.Empty(t, cmp.Diff(before, ir.ModuleText(module)))
}

func TestFunctionWithoutRoot(t *testing.T) {
	module := ir.NewModule("test")
	fn := module.NewFunction("main")
	_ = must.M1(fn.Parameter("x", MS(dtypes.Float32, 2)))
	require.NoError(t, module.AddFunction(fn))
	_, err := Run(module, DefaultMaxElements, DefaultTargetElements)
	require.Error(t, err)
}
