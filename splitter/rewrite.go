// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splitter

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// SubFunctionName is the base name of the sub-functions created to compute one chunk of a split operand.
// The module makes it unique with a ".N" suffix.
const SubFunctionName = "split_tensor_computation"

// Side of a DotGeneral: its lhs or rhs operand.
type Side int

const (
	SideLhs Side = iota
	SideRhs
)

// String implements fmt.Stringer.
func (side Side) String() string {
	if side == SideLhs {
		return "lhs"
	}
	return "rhs"
}

// Rewrite describes one DotGeneral split by the Splitter.
type Rewrite struct {
	// Function where the DotGeneral was.
	Function string

	// Dot is the description of the original DotGeneral node.
	Dot string

	// Side of the DotGeneral whose operand was split.
	Side Side

	// OperandElements is the number of elements of the split operand.
	OperandElements int

	// OperandAxis is the axis of the operand split, and OutputAxis the corresponding axis of the DotGeneral output.
	OperandAxis, OutputAxis int

	// ChunkSize is the size of each chunk along the split axis, and NumChunks the number of them.
	ChunkSize, NumChunks int

	// ChunkElements is the number of elements of each chunk of the operand.
	ChunkElements int

	// SubFunction is the name of the function created to compute one chunk of the operand.
	SubFunction string
}

// dotRewrite is the attempt to split one DotGeneral node. It keeps what is needed to roll it back.
type dotRewrite struct {
	s   *Splitter
	fn  *ir.Function
	dot *ir.Node

	// mark is the number of nodes of fn before the rewrite started.
	mark int

	// sub is the sub-function created, if any.
	sub *ir.Function
}

func newDotRewrite(s *Splitter, fn *ir.Function, dot *ir.Node) *dotRewrite {
	return &dotRewrite{s: s, fn: fn, dot: dot, mark: fn.NumNodes()}
}

// run splits the DotGeneral, if one of its operands is too large and can be split.
// It returns nil if the node was left untouched. It panics on internal inconsistencies.
func (r *dotRewrite) run() *Rewrite {
	s, fn, dot := r.s, r.fn, r.dot
	lhs, rhs := dot.Input(0), dot.Input(1)
	lhsContracting, rhsContracting := dot.ContractingAxes()
	canSplitLhs := s.ShouldSplit(lhs) && CanSplit(lhs)
	canSplitRhs := s.ShouldSplit(rhs) && CanSplit(rhs)
	if !canSplitLhs && !canSplitRhs {
		return nil
	}

	side, splitOperand, otherOperand, contracting := SideLhs, lhs, rhs, lhsContracting
	if !canSplitLhs {
		side, splitOperand, otherOperand, contracting = SideRhs, rhs, lhs, rhsContracting
	}
	splitAxis, found := s.BestSplitDim(splitOperand, contracting)
	if !found {
		klog.V(2).Infof("splitter: %s in %q: no axis of the %s operand %s can be split under %d elements",
			dot, fn.Name(), side, splitOperand, s.config.MaxElements)
		return nil
	}
	chunkSize, found := s.BestSplitSize(splitOperand, splitAxis)
	if !found {
		klog.V(2).Infof("splitter: %s in %q: no chunk size for axis %d of the %s operand %s",
			dot, fn.Name(), splitAxis, side, splitOperand)
		return nil
	}

	extent := splitOperand.Shape().Dimensions[splitAxis]
	numChunks := extent / chunkSize
	if fullSize := numChunks * chunkSize; fullSize != extent {
		exceptions.Panicf("splitter: %d chunks of size %d don't tile axis %d of %s (%d elements)",
			numChunks, chunkSize, splitAxis, splitOperand, extent)
	}

	// Build and register the sub-function computing one chunk of the operand.
	r.sub = fn.Module().NewFunction(SubFunctionName)
	builder := newGraphBuilder(fn, r.sub, chunkSize)
	subRoot := builder.build(splitOperand, splitAxis)
	if len(builder.chunkParams) != numChunks {
		exceptions.Panicf("splitter: built %d chunks for %s, want %d", len(builder.chunkParams), splitOperand, numChunks)
	}
	must.M(r.sub.SetRoot(subRoot))
	must.M(fn.Module().AddFunction(r.sub))

	// Re-apply the DotGeneral to each chunk and concatenate the results.
	outputAxis := outputAxisOf(contracting, splitAxis)
	if side == SideRhs {
		outputAxis += lhs.Shape().Rank() - len(lhsContracting)
	}
	partShape := dot.Shape().WithDim(outputAxis, chunkSize)
	parts := make([]*ir.Node, numChunks)
	for chunk, params := range builder.chunkParams {
		call := must.M1(fn.Call(r.sub, params...))
		operands := []*ir.Node{call, otherOperand}
		if side == SideRhs {
			operands = []*ir.Node{otherOperand, call}
		}
		parts[chunk] = must.M1(fn.CloneWithNewOperands(dot, partShape, operands...))
	}
	concat := must.M1(fn.Concatenate(outputAxis, parts...))
	if !concat.Shape().Equal(dot.Shape()) {
		exceptions.Panicf("splitter: concatenation of chunks has shape %s, want %s", concat.Shape(), dot.Shape())
	}
	rewrite := &Rewrite{
		Function:        fn.Name(),
		Dot:             dot.String(),
		Side:            side,
		OperandElements: ElementCount(splitOperand.Shape()),
		OperandAxis:     splitAxis,
		OutputAxis:      outputAxis,
		ChunkSize:       chunkSize,
		NumChunks:       numChunks,
		ChunkElements:   ElementCount(splitOperand.Shape()) / extent * chunkSize,
		SubFunction:     r.sub.Name(),
	}
	must.M(fn.ReplaceAllUsesWith(dot, concat))
	klog.V(1).Infof("splitter: %s in %q: split %s operand %s along axis %d into %d chunks of %d, calling %q",
		dot, fn.Name(), side, splitOperand, splitAxis, numChunks, chunkSize, r.sub.Name())
	return rewrite
}

// rollback removes every node and function created by the attempt.
func (r *dotRewrite) rollback() error {
	err := r.fn.Truncate(r.mark)
	if r.sub != nil && r.sub.IsRegistered() {
		err = multierr.Append(err, r.fn.Module().RemoveFunction(r.sub))
	}
	return errors.WithMessagef(err, "splitter: failed to roll back split of %s in %q", r.dot, r.fn.Name())
}
