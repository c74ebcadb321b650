// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpTypeString(t *testing.T) {
	assert.Equal(t, "DotGeneral", OpTypeDotGeneral.String())
	assert.Equal(t, "Transpose", OpTypeTranspose.String())
	assert.Equal(t, "OpType(1000)", OpType(1000).String())

	opType, err := OpTypeString("dotgeneral")
	require.NoError(t, err)
	assert.Equal(t, OpTypeDotGeneral, opType)
	_, err = OpTypeString("matmul")
	require.Error(t, err)

	for _, opType := range OpTypeValues() {
		parsed, err := OpTypeString(opType.String())
		require.NoError(t, err)
		require.Equal(t, opType, parsed)
	}
}

func TestCategories(t *testing.T) {
	assert.True(t, OpTypeExp.IsElementwise())
	assert.True(t, OpTypeAdd.IsElementwise())
	assert.False(t, OpTypeTranspose.IsElementwise())
	assert.False(t, OpTypeDotGeneral.IsElementwise())
	assert.True(t, OpTypeTrace.IsElementwise())
	assert.True(t, OpTypeTrace.HasSideEffect())
	assert.False(t, OpTypeNeg.HasSideEffect())
}
