// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pass is a transformation of a module.
type Pass interface {
	// Name of the pass, used in logs and errors.
	Name() string

	// Run the pass over the module. It returns whether the module was changed.
	Run(m *Module) (changed bool, err error)
}

// RunPasses runs each pass in order over the module, and returns whether any of them changed it.
// It stops at the first error.
func RunPasses(m *Module, passes ...Pass) (changed bool, err error) {
	for _, pass := range passes {
		start := time.Now()
		passChanged, err := pass.Run(m)
		if err != nil {
			return changed, errors.WithMessagef(err, "pass %q failed on module %s", pass.Name(), m)
		}
		klog.V(1).Infof("pass %q on module %q (id=%s): changed=%v in %s", pass.Name(), m.name, m.id, passChanged, time.Since(start))
		changed = changed || passChanged
	}
	return changed, nil
}

// DeadCodeElimination is a Pass that removes, from every function of the module, the nodes
// not reachable from its root. Parameters are kept.
type DeadCodeElimination struct{}

var _ Pass = DeadCodeElimination{}

// Name implements Pass.
func (DeadCodeElimination) Name() string { return "dce" }

// Run implements Pass.
func (DeadCodeElimination) Run(m *Module) (bool, error) {
	var removed int
	for _, fn := range m.functions {
		if fn.root == nil {
			return removed > 0, errors.Errorf("dce: function %q has no root", fn.name)
		}
		n := fn.RemoveDeadNodes()
		if n > 0 {
			klog.V(2).Infof("dce: removed %d nodes from function %q", n, fn.name)
		}
		removed += n
	}
	return removed > 0, nil
}
