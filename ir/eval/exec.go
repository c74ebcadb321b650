// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package eval is a reference interpreter of ir functions, used to check that graph rewrites preserve
// the values computed.
//
// It favors simplicity over speed: every node is computed in float64, whatever its dtype, and only
// the final result is converted back to the root's dtype.
package eval

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/pkg/errors"
)

// TraceSink receives the value of every executed Trace node, along with its tag.
type TraceSink func(tag string, value *Buffer)

// Executor interprets ir functions.
type Executor struct {
	traceSink TraceSink
}

// New creates an Executor.
func New() *Executor {
	return &Executor{}
}

// WithTraceSink sets where the values of Trace nodes are reported. By default, they are discarded.
func (e *Executor) WithTraceSink(sink TraceSink) *Executor {
	e.traceSink = sink
	return e
}

// Execute interprets fn with a default Executor.
func Execute(fn *ir.Function, inputs ...*Buffer) (*Buffer, error) {
	return New().Execute(fn, inputs...)
}

// Execute interprets fn with the given inputs, one per parameter, and returns the value of its root.
func (e *Executor) Execute(fn *ir.Function, inputs ...*Buffer) (*Buffer, error) {
	if fn.Root() == nil {
		return nil, errors.Errorf("Execute(%q): function has no root", fn.Name())
	}
	params := fn.Parameters()
	if len(inputs) != len(params) {
		return nil, errors.Errorf("Execute(%q): function takes %d parameters, %d inputs given", fn.Name(), len(params), len(inputs))
	}
	args := make([][]float64, len(inputs))
	for ii, input := range inputs {
		if !input.shape.Equal(params[ii].Shape()) {
			return nil, errors.Errorf("Execute(%q): input #%d has shape %s, parameter %q has shape %s",
				fn.Name(), ii, input.shape, params[ii].ParameterName(), params[ii].Shape())
		}
		args[ii] = input.Float64s()
	}
	var output *Buffer
	err := exceptions.TryCatch[error](func() {
		values := e.run(fn, args)
		var err error
		output, err = FromFloat64s(fn.Root().Shape(), values)
		if err != nil {
			panic(err)
		}
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "Execute(%q)", fn.Name())
	}
	return output, nil
}

// nodeExecutor computes the value of a node given the values of its inputs.
type nodeExecutor func(e *Executor, node *ir.Node, inputs [][]float64) []float64

// nodeExecutors is indexed by OpType, and filled by the init() functions of the exec_*.go files.
var nodeExecutors [ops.OpTypeLast]nodeExecutor

// run executes fn in post-order, and returns the value of its root. It panics on errors.
func (e *Executor) run(fn *ir.Function, args [][]float64) []float64 {
	values := make([][]float64, fn.NumNodes())
	for _, node := range fn.PostOrder() {
		if node.OpType() == ops.OpTypeParameter {
			values[node.Index()] = args[node.ParameterIndex()]
			continue
		}
		executor := nodeExecutors[node.OpType()]
		if executor == nil {
			exceptions.Panicf("eval: no executor for %s in function %q", node, fn.Name())
		}
		inputs := make([][]float64, node.NumInputs())
		for ii := range inputs {
			inputs[ii] = values[node.Input(ii).Index()]
		}
		values[node.Index()] = executor(e, node, inputs)
	}
	return values[fn.Root().Index()]
}
