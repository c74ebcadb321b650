// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package irtest holds test utilities for packages that transform ir modules.
package irtest

import (
	"math/rand/v2"
	"testing"

	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ir/eval"
	"github.com/stretchr/testify/require"
)

// RandomInputs returns one random buffer per parameter of fn.
func RandomInputs(rng *rand.Rand, fn *ir.Function) ([]*eval.Buffer, error) {
	params := fn.Parameters()
	inputs := make([]*eval.Buffer, len(params))
	for ii, param := range params {
		var err error
		inputs[ii], err = eval.RandomBuffer(rng, param.Shape())
		if err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

// RunPassAndCompare runs pass over module and checks that the entry function computes the same values
// as before, on numTrials sets of random inputs. The module must be valid before the pass, and it is
// verified after it.
//
// delta is the margin of value on the difference of the outputs that is acceptable.
// Values of delta <= 0 means only exact equality is accepted.
//
// It returns whether the pass changed the module.
func RunPassAndCompare(t *testing.T, module *ir.Module, pass ir.Pass, numTrials int, delta float64) (changed bool) {
	t.Helper()
	require.NoError(t, ir.Verify(module), "module is invalid before pass %q", pass.Name())
	entry := module.Entry()
	rng := rand.New(rand.NewPCG(uint64(numTrials), 0x5eed))
	inputs := make([][]*eval.Buffer, numTrials)
	want := make([]*eval.Buffer, numTrials)
	for trial := range numTrials {
		var err error
		inputs[trial], err = RandomInputs(rng, entry)
		require.NoError(t, err)
		want[trial], err = eval.Execute(entry, inputs[trial]...)
		require.NoErrorf(t, err, "failed to execute %q before pass %q", entry.Name(), pass.Name())
	}

	changed, err := ir.RunPasses(module, pass)
	require.NoError(t, err)
	require.NoError(t, ir.Verify(module), "module is invalid after pass %q:\n%s", pass.Name(), ir.ModuleText(module))

	for trial := range numTrials {
		got, err := eval.Execute(entry, inputs[trial]...)
		require.NoErrorf(t, err, "failed to execute %q after pass %q", entry.Name(), pass.Name())
		diff, err := eval.MaxAbsDiff(want[trial], got)
		require.NoError(t, err)
		if delta <= 0 {
			require.Zerof(t, diff, "trial #%d: values changed by pass %q", trial, pass.Name())
		} else {
			require.LessOrEqualf(t, diff, delta, "trial #%d: values changed by pass %q", trial, pass.Name())
		}
	}
	return changed
}
