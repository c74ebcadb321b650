// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package splitter implements a graph rewrite that bounds the size of the operands of contractions
// (ir DotGeneral nodes).
//
// When an operand of a DotGeneral has more than Config.MaxElements elements, and it is itself produced
// by a DotGeneral, possibly through a chain of side effect free elementwise unary ops and transposes,
// the producing chain is split along one axis into chunks: a sub-function computes one chunk of the
// operand from slices of the inner DotGeneral operand, it is called once per chunk, the outer DotGeneral
// is applied to each chunk, and the results are concatenated back into the original output.
//
// Chunk sizes always divide the split axis exactly: they are found by dividing the axis by its small
// prime factors until one chunk has at most Config.TargetElements elements. Contractions whose operands
// can't be split this way under Config.MaxElements are left untouched.
//
// Example:
//
//	changed, err := splitter.Run(module, splitter.DefaultMaxElements, splitter.DefaultTargetElements)
//
// Or as one of a list of passes:
//
//	s, err := splitter.New(splitter.WithMaxElements(1<<20))
//	...
//	changed, err := ir.RunPasses(module, s, ir.DeadCodeElimination{})
package splitter

import (
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// Splitter is an ir.Pass that splits large contraction operands into chunks.
//
// A Splitter is not safe for concurrent use: Run records the rewrites of the last run.
type Splitter struct {
	config   Config
	rewrites []Rewrite
}

var _ ir.Pass = (*Splitter)(nil)

// New creates a Splitter with DefaultConfig, modified by the options.
func New(options ...Option) (*Splitter, error) {
	config := DefaultConfig()
	for _, option := range options {
		option(&config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{config: config}, nil
}

// Run splits the large contraction operands of the module with the given thresholds, and returns
// whether the module changed. See Splitter.
func Run(module *ir.Module, maxElements, targetElements int) (changed bool, err error) {
	s, err := New(WithMaxElements(maxElements), WithTargetElements(targetElements))
	if err != nil {
		return false, err
	}
	return s.Run(module)
}

// Config returns the thresholds used by the Splitter.
func (s *Splitter) Config() Config { return s.config }

// Name implements ir.Pass.
func (s *Splitter) Name() string { return "tensor_splitter" }

// Rewrites returns the description of the DotGeneral nodes split during the last Run, in the order they were split.
func (s *Splitter) Rewrites() []Rewrite { return slices.Clone(s.rewrites) }

// Run implements ir.Pass.
//
// It visits, in post-order, every DotGeneral node of the functions that exist when it starts: the
// nodes and sub-functions it creates are not visited again.
//
// A DotGeneral that can't be split is left untouched, that is not an error. An error is returned if
// an internal inconsistency is found, in which case the rewrite of the current node is rolled back, but
// the nodes already split stay split.
//
// The original DotGeneral nodes, and possibly their operands, are left dangling: run ir.DeadCodeElimination
// after it to remove them.
func (s *Splitter) Run(module *ir.Module) (changed bool, err error) {
	start := time.Now()
	s.rewrites = nil
	for _, fn := range module.Functions() {
		if fn.Root() == nil {
			return changed, errors.Errorf("splitter: function %q has no root", fn.Name())
		}
		for _, node := range fn.PostOrder() {
			if node.OpType() != ops.OpTypeDotGeneral {
				continue
			}
			attempt := newDotRewrite(s, fn, node)
			var rewrite *Rewrite
			err = exceptions.TryCatch[error](func() { rewrite = attempt.run() })
			if err != nil {
				err = multierr.Append(errors.WithMessagef(err, "splitter: failed to split %s in %q", node, fn.Name()),
					attempt.rollback())
				return changed, err
			}
			if rewrite != nil {
				s.rewrites = append(s.rewrites, *rewrite)
				changed = true
			}
		}
	}
	if changed {
		var chunks int
		for _, rewrite := range s.rewrites {
			chunks += rewrite.NumChunks
		}
		klog.Infof("splitter: split %d contraction operands of module %q into %d chunks (max=%s, target=%s elements) in %s",
			len(s.rewrites), module.Name(), chunks, humanize.Comma(int64(s.config.MaxElements)),
			humanize.Comma(int64(s.config.TargetElements)), time.Since(start))
	}
	return changed, nil
}
