// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/tensorsplit/ops"
)

// Text returns a deterministic textual dump of fn: one line per reachable node in post-order, with its
// inputs, attributes and shape. Unreachable nodes are not listed.
//
// Example:
//
//	func main(#0, #1) {
//	  #0 = Parameter "x" (Float32)[20000 128]
//	  #1 = Parameter "w" (Float32)[128 4096]
//	  #2 = DotGeneral(#0, #1) lhs_contracting=[1] rhs_contracting=[0] (Float32)[20000 4096]
//	  return #2
//	}
func Text(fn *Function) string {
	var sb strings.Builder
	params := make([]string, len(fn.parameters))
	for ii, param := range fn.parameters {
		params[ii] = fmt.Sprintf("#%d", param.idx)
	}
	fmt.Fprintf(&sb, "func %s(%s) {\n", fn.name, strings.Join(params, ", "))
	for _, node := range fn.PostOrder() {
		fmt.Fprintf(&sb, "  %s\n", nodeText(node))
	}
	if fn.root != nil {
		fmt.Fprintf(&sb, "  return #%d\n", fn.root.idx)
	}
	sb.WriteString("}\n")
	return sb.String()
}

// ModuleText returns the Text of every registered function of the module, the entry function first.
func ModuleText(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", m.name)
	if m.entry != nil {
		sb.WriteString(Text(m.entry))
	}
	for _, fn := range m.functions {
		if fn == m.entry {
			continue
		}
		sb.WriteString(Text(fn))
	}
	return sb.String()
}

func nodeText(node *Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d = %s", node.idx, node.opType)
	if len(node.inputs) > 0 {
		inputs := make([]string, len(node.inputs))
		for ii, input := range node.inputs {
			inputs[ii] = fmt.Sprintf("#%d", input.idx)
		}
		fmt.Fprintf(&sb, "(%s)", strings.Join(inputs, ", "))
	}
	switch node.opType {
	case ops.OpTypeParameter:
		fmt.Fprintf(&sb, " %q", node.data.(*parameterData).name)
	case ops.OpTypeTrace:
		fmt.Fprintf(&sb, " tag=%q", node.data.(*traceData).tag)
	case ops.OpTypeReshape:
		fmt.Fprintf(&sb, " dims=%v", []int(node.data.(reshapeData)))
	case ops.OpTypeBroadcast:
		fmt.Fprintf(&sb, " prefix=%v", []int(node.data.(prefixDimsData)))
	case ops.OpTypeTranspose:
		fmt.Fprintf(&sb, " permutation=%v", []int(node.data.(transposeData)))
	case ops.OpTypeSlice:
		d := node.data.(*sliceData)
		fmt.Fprintf(&sb, " starts=%v limits=%v strides=%v", d.starts, d.limits, d.strides)
	case ops.OpTypeConcatenate:
		fmt.Fprintf(&sb, " axis=%d", int(node.data.(concatenateData)))
	case ops.OpTypeDotGeneral:
		d := node.data.(*dotGeneralData)
		fmt.Fprintf(&sb, " lhs_contracting=%v rhs_contracting=%v", d.lhsContractingAxes, d.rhsContractingAxes)
	case ops.OpTypeReduceSum:
		fmt.Fprintf(&sb, " axes=%v", []int(node.data.(axesData)))
	case ops.OpTypeCall:
		fmt.Fprintf(&sb, " @%s", node.data.(*callData).target.name)
	}
	fmt.Fprintf(&sb, " %s", node.shape)
	return sb.String()
}
