// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"testing"

	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ir/irtest"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setFlags sets the given flags for the duration of the test.
func setFlags(t *testing.T, values map[string]string) {
	for name, value := range values {
		f := flag.Lookup(name)
		require.NotNilf(t, f, "unknown flag -%s", name)
		previous := f.Value.String()
		require.NoError(t, flag.Set(name, value))
		t.Cleanup(func() { _ = flag.Set(name, previous) })
	}
}

func TestParseInts(t *testing.T) {
	values, err := parseInts("lhs", " 20000, 128 ")
	require.NoError(t, err)
	assert.Equal(t, []int{20000, 128}, values)

	values, err = parseInts("lhs_contracting", "")
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = parseInts("rhs", "128,x")
	require.ErrorContains(t, err, "-rhs")
}

func TestBuildModule(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		setFlags(t, map[string]string{"chain": "reshape"})
		_, err := buildModule()
		require.ErrorContains(t, err, "-chain")

		setFlags(t, map[string]string{"chain": "dot", "lhs": "12,0"})
		_, err = buildModule()
		require.ErrorContains(t, err, "positive")
	})

	t.Run("unary_transpose", func(t *testing.T) {
		setFlags(t, map[string]string{
			"lhs": "12,5", "rhs": "5,3", "inner": "4", "chain": "unary_transpose",
			"lhs_contracting": "1", "rhs_contracting": "0",
		})
		module, err := buildModule()
		require.NoError(t, err)
		require.NoError(t, ir.Verify(module))
		entry := module.Entry()
		assert.Equal(t, "main", entry.Name())
		assert.Len(t, entry.Parameters(), 3)
		assert.Equal(t, []int{12, 3}, entry.Root().Shape().Dimensions)
		assert.Equal(t, 5*12*4+12*3*5, countMultiplyAdds(entry))

		nodesBefore := countNodes(module)
		assert.Equal(t, 60, peakOperand(module).Size())
		s, err := splitter.New(splitter.WithMaxElements(40), splitter.WithTargetElements(20))
		require.NoError(t, err)
		require.True(t, irtest.RunPassAndCompare(t, module, s, 2, 1e-5))

		rewrites := s.Rewrites()
		require.Len(t, rewrites, 1)
		assert.Equal(t, 3, rewrites[0].ChunkSize)
		assert.Equal(t, 4, rewrites[0].NumChunks)
		assert.Equal(t, ops.OpTypeConcatenate, entry.Root().OpType())
		assert.Len(t, module.Functions(), 2)
		assert.Greater(t, countNodes(module), nodesBefore)
		// The largest operand left is the parameter a, contracted with each chunk of b.
		assert.Equal(t, 20, peakOperand(module).Size())
	})
}
