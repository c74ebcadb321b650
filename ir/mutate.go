// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"slices"

	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/types/shapes"
	"github.com/pkg/errors"
)

// CloneWithNewOperands creates in f a copy of node -- which may belong to another function -- with
// the same op type and op data, but with the given operands and output shape.
//
// The shape must be the one the operation yields for the new operands.
// Parameters and constants can't be cloned.
func (f *Function) CloneWithNewOperands(node *Node, shape shapes.Shape, operands ...*Node) (*Node, error) {
	if node.opType == ops.OpTypeParameter || node.opType == ops.OpTypeConstant {
		return nil, errors.Errorf("CloneWithNewOperands(%s): cannot clone a %s", node, node.opType)
	}
	if len(operands) != len(node.inputs) {
		return nil, errors.Errorf("CloneWithNewOperands(%s): node has %d operands, %d given", node, len(node.inputs), len(operands))
	}
	if _, err := f.checkNodes("CloneWithNewOperands", operands...); err != nil {
		return nil, err
	}
	data := cloneData(node.data)
	inferred, err := f.inferShape(node.opType, data, operands)
	if err != nil {
		return nil, errors.WithMessagef(err, "CloneWithNewOperands(%s)", node)
	}
	if !inferred.Equal(shape) {
		return nil, errors.Errorf("CloneWithNewOperands(%s): requested shape %s, but the operands yield %s", node, shape, inferred)
	}
	return f.newNode(node.opType, inferred, data, operands...), nil
}

// Users returns the nodes in f that take node as an operand, in arena order, once each.
func (f *Function) Users(node *Node) []*Node {
	var users []*Node
	for _, candidate := range f.nodes {
		if slices.Contains(candidate.inputs, node) {
			users = append(users, candidate)
		}
	}
	return users
}

// ReplaceAllUsesWith redirects every consumer of oldNode (and the root, if it is oldNode) to newNode.
// The nodes must have the same shape. newNode itself is left untouched, so it may use oldNode.
//
// oldNode is not removed: it becomes dead once nothing uses it, see RemoveDeadNodes.
func (f *Function) ReplaceAllUsesWith(oldNode, newNode *Node) error {
	if _, err := f.checkNodes("ReplaceAllUsesWith", oldNode, newNode); err != nil {
		return err
	}
	if oldNode == newNode {
		return errors.Errorf("ReplaceAllUsesWith(%s): cannot replace a node with itself", oldNode)
	}
	if !oldNode.shape.Equal(newNode.shape) {
		return errors.Errorf("ReplaceAllUsesWith(%s, %s): shapes don't match", oldNode, newNode)
	}
	for _, user := range f.nodes {
		if user == newNode {
			continue
		}
		for ii, input := range user.inputs {
			if input == oldNode {
				user.inputs[ii] = newNode
			}
		}
	}
	if f.root == oldNode {
		f.root = newNode
	}
	return nil
}

// PostOrder returns the nodes reachable from the root, each one after all its operands.
// Parameters are always included, in order, even when not used.
// It returns nil if the function has no root.
func (f *Function) PostOrder() []*Node {
	if f.root == nil {
		return nil
	}
	visited := make([]bool, len(f.nodes))
	order := make([]*Node, 0, len(f.nodes))
	for _, param := range f.parameters {
		visited[param.idx] = true
		order = append(order, param)
	}

	// Iterative depth-first traversal: deep chains of nodes shouldn't exhaust the stack.
	type frame struct {
		node    *Node
		nextIdx int
	}
	stack := []frame{{node: f.root}}
	visited[f.root.idx] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.nextIdx < len(top.node.inputs) {
			input := top.node.inputs[top.nextIdx]
			top.nextIdx++
			if !visited[input.idx] {
				visited[input.idx] = true
				stack = append(stack, frame{node: input})
			}
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}
	return order
}

// RemoveDeadNodes drops every node not reachable from the root (parameters are kept), and
// re-indexes the remaining nodes in post-order. It returns the number of nodes removed.
//
// Node references to removed nodes must not be used afterward.
func (f *Function) RemoveDeadNodes() int {
	order := f.PostOrder()
	if order == nil {
		return 0
	}
	removed := len(f.nodes) - len(order)
	for _, node := range f.nodes {
		node.idx = -1
	}
	for idx, node := range order {
		node.idx = idx
	}
	f.nodes = order
	return removed
}

// Truncate removes all nodes with index >= numNodes, rolling the function back to the state it had when
// NumNodes() returned numNodes. It fails if any remaining node, parameter or the root refers to a
// node being removed.
func (f *Function) Truncate(numNodes int) error {
	if numNodes < 0 || numNodes > len(f.nodes) {
		return errors.Errorf("Truncate(%d): function %q has %d nodes", numNodes, f.name, len(f.nodes))
	}
	for _, node := range f.nodes[:numNodes] {
		for _, input := range node.inputs {
			if input.idx >= numNodes {
				return errors.Errorf("Truncate(%d): node %s uses node %s, which would be removed", numNodes, node, input)
			}
		}
	}
	if f.root != nil && f.root.idx >= numNodes {
		return errors.Errorf("Truncate(%d): root %s would be removed", numNodes, f.root)
	}
	for _, param := range f.parameters {
		if param.idx >= numNodes {
			return errors.Errorf("Truncate(%d): parameter %s would be removed", numNodes, param)
		}
	}
	for _, node := range f.nodes[numNodes:] {
		node.idx = -1
	}
	clear(f.nodes[numNodes:])
	f.nodes = f.nodes[:numNodes]
	return nil
}
