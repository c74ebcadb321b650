// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"github.com/gomlx/tensorsplit/ops"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Verify checks the structural consistency of every registered function of the module, and returns all
// violations found combined into one error (see multierr.Errors), or nil if the module is well-formed.
func Verify(m *Module) error {
	var err error
	if m.entry == nil {
		err = multierr.Append(err, errors.Errorf("module %q has no entry function", m.name))
	}
	for _, fn := range m.functions {
		err = multierr.Append(err, VerifyFunction(fn))
	}
	return err
}

// VerifyFunction checks the structural consistency of fn:
//
//   - It has a root.
//   - Every node index matches its position in the arena.
//   - Every input is a live node of the same function.
//   - Parameter indices match their position.
//   - Every node's shape is the one its operation yields for its inputs, which for Call nodes also
//     checks the target arity and parameter shapes.
func VerifyFunction(fn *Function) error {
	var err error
	if fn.root == nil {
		err = multierr.Append(err, errors.Errorf("function %q has no root", fn.name))
	} else if fn.root.function != fn || fn.root.idx < 0 || fn.root.idx >= len(fn.nodes) || fn.nodes[fn.root.idx] != fn.root {
		err = multierr.Append(err, errors.Errorf("function %q: root %s is not part of the function", fn.name, fn.root))
	}
	for ii, param := range fn.parameters {
		if param.opType != ops.OpTypeParameter || param.data.(*parameterData).inputIdx != ii {
			err = multierr.Append(err, errors.Errorf("function %q: parameter #%d is %s with a mismatching index", fn.name, ii, param))
		}
	}
	for idx, node := range fn.nodes {
		if node.idx != idx {
			err = multierr.Append(err, errors.Errorf("function %q: node %s at arena position %d", fn.name, node, idx))
			continue
		}
		if node.function != fn {
			err = multierr.Append(err, errors.Errorf("function %q: node %s is owned by another function", fn.name, node))
			continue
		}
		dangling := false
		for inputIdx, input := range node.inputs {
			if input == nil || input.function != fn || input.idx < 0 || input.idx >= len(fn.nodes) || fn.nodes[input.idx] != input {
				err = multierr.Append(err, errors.Errorf("function %q: node %s input #%d (%s) is not a node of the function",
					fn.name, node, inputIdx, input))
				dangling = true
			}
		}
		if dangling || node.opType == ops.OpTypeParameter || node.opType == ops.OpTypeConstant {
			continue
		}
		shape, inferErr := fn.inferShape(node.opType, node.data, node.inputs)
		if inferErr != nil {
			err = multierr.Append(err, errors.WithMessagef(inferErr, "function %q: node %s", fn.name, node))
			continue
		}
		if !shape.Equal(node.shape) {
			err = multierr.Append(err, errors.Errorf("function %q: node %s has shape %s, but its inputs yield %s",
				fn.name, node, node.shape, shape))
		}
	}
	return err
}
