// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ir implements the dataflow graph the optimization passes work on: a Module owns named
// Functions, and each Function holds an arena of Nodes.
//
// Nodes are only created after their inputs, and are never mutated in place by passes: rewrites
// add new nodes, redirect the consumers of a replaced node with Function.ReplaceAllUsesWith, and
// leave orphaned nodes for a later Function.RemoveDeadNodes sweep.
package ir

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Module owns a set of functions, one of which is the entry point.
type Module struct {
	name string
	id   string

	// functions registered in the module, in registration order.
	functions []*Function
	byName    map[string]*Function
	entry     *Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:   name,
		id:     uuid.NewString(),
		byName: make(map[string]*Function),
	}
}

// Name of the module.
func (m *Module) Name() string { return m.name }

// ID is a unique identifier of the module, used to tell modules apart in logs.
func (m *Module) ID() string { return m.id }

// String implements fmt.Stringer.
func (m *Module) String() string {
	return fmt.Sprintf("Module(%q, id=%s)", m.name, m.id)
}

// NewFunction creates a function owned by the module but not yet registered: build it and then
// call AddFunction. Unregistered functions can't be the target of a Call.
func (m *Module) NewFunction(name string) *Function {
	return &Function{module: m, name: name}
}

// AddFunction registers fn in the module. If the name is already taken, fn is renamed with a ".N" suffix.
// The first function registered becomes the entry, unless SetEntry is used.
func (m *Module) AddFunction(fn *Function) error {
	if fn.module != m {
		return errors.Errorf("AddFunction(%q): function belongs to a different module", fn.name)
	}
	if fn.registered {
		return errors.Errorf("AddFunction(%q): function already registered in module %q", fn.name, m.name)
	}
	if _, found := m.byName[fn.name]; found {
		base := fn.name
		for ii := 1; ; ii++ {
			candidate := fmt.Sprintf("%s.%d", base, ii)
			if _, found := m.byName[candidate]; !found {
				fn.name = candidate
				break
			}
		}
	}
	fn.registered = true
	m.functions = append(m.functions, fn)
	m.byName[fn.name] = fn
	if m.entry == nil {
		m.entry = fn
	}
	return nil
}

// RemoveFunction unregisters fn from the module. It fails if fn is the entry or if any other
// registered function still calls it.
func (m *Module) RemoveFunction(fn *Function) error {
	if !fn.registered || fn.module != m {
		return errors.Errorf("RemoveFunction(%q): function is not registered in module %q", fn.name, m.name)
	}
	if fn == m.entry {
		return errors.Errorf("RemoveFunction(%q): cannot remove the entry function", fn.name)
	}
	for _, other := range m.functions {
		if other == fn {
			continue
		}
		for _, node := range other.nodes {
			if node.CallTarget() == fn {
				return errors.Errorf("RemoveFunction(%q): function is still called by %s in %q", fn.name, node, other.name)
			}
		}
	}
	m.functions = slices.DeleteFunc(m.functions, func(f *Function) bool { return f == fn })
	delete(m.byName, fn.name)
	fn.registered = false
	return nil
}

// Functions returns a snapshot of the registered functions, in registration order.
func (m *Module) Functions() []*Function {
	return slices.Clone(m.functions)
}

// Function returns the registered function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	return m.byName[name]
}

// Entry returns the entry function of the module.
func (m *Module) Entry() *Function { return m.entry }

// SetEntry sets the entry function, which must be registered.
func (m *Module) SetEntry(fn *Function) error {
	if !fn.registered || fn.module != m {
		return errors.Errorf("SetEntry(%q): function is not registered in module %q", fn.name, m.name)
	}
	m.entry = fn
	return nil
}
