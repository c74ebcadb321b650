// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// tensorsplit builds a module with a contraction whose lhs operand is computed by another contraction,
// runs the tensor splitter over it, and reports how it was rewritten.
//
// Example:
//
//	tensorsplit -lhs=20000,128 -rhs=128,4096 -chain=unary_transpose -dump
//	tensorsplit -lhs=2000,128 -rhs=128,64 -max=100000 -target=20000 -verify -trials=5
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/splitter"
	"github.com/gomlx/tensorsplit/types/shapes"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagLHS = flag.String("lhs", "20000,128", "Comma-separated dimensions of the lhs operand of the contraction. "+
		"It is computed by another contraction, optionally followed by the ops in -chain.")
	flagRHS            = flag.String("rhs", "128,4096", "Comma-separated dimensions of the rhs operand of the contraction.")
	flagLHSContracting = flag.String("lhs_contracting", "1", "Comma-separated contracting axes of the lhs operand.")
	flagRHSContracting = flag.String("rhs_contracting", "0", "Comma-separated contracting axes of the rhs operand.")
	flagInner          = flag.Int("inner", 64, "Contracting dimension of the contraction that computes the lhs operand.")
	flagChain          = flag.String("chain", "dot", "How the lhs operand is computed: \"dot\", \"unary\" (Tanh of a dot), "+
		"\"transpose\" (transposed dot) or \"unary_transpose\" (Tanh of a transposed dot).")
	flagMax    = flag.Int("max", splitter.DefaultMaxElements, "Operands with more elements than this are split.")
	flagTarget = flag.Int("target", splitter.DefaultTargetElements, "Target number of elements of each chunk.")
	flagDump   = flag.Bool("dump", false, "Print the rewritten module.")
	flagVerify = flag.Bool("verify", false, "Evaluate the original and the rewritten module on random inputs, "+
		"and compare the results.")
	flagTrials       = flag.Int("trials", 3, "Number of random inputs used by -verify.")
	flagVerifyMaxOps = flag.Int("verify_max_ops", 10_000_000, "-verify is skipped if evaluating the "+
		"contraction takes more multiply-adds than this.")
	flagNoColor = flag.Bool("nocolor", false, "Disable colors in the output.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if len(flag.Args()) > 0 {
		klog.Errorf("Unexpected arguments %q. See 'tensorsplit -help'.", flag.Args())
		os.Exit(1)
	}

	module, err := buildModule()
	if err != nil {
		klog.Errorf("Failed to build module: %+v", err)
		os.Exit(1)
	}
	nodesBefore := countNodes(module)
	peakBefore := peakOperand(module)
	s := must.M1(splitter.New(splitter.WithMaxElements(*flagMax), splitter.WithTargetElements(*flagTarget)))
	changed := must.M1(ir.RunPasses(module, s, ir.DeadCodeElimination{}))
	must.M(ir.Verify(module))

	report(module, s, changed, nodesBefore, peakBefore)
	if *flagDump {
		fmt.Println(titleStyle.Render("Module"))
		fmt.Println(ir.ModuleText(module))
	}
	if *flagVerify {
		verify(module)
	}
}

func parseInts(flagName, value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	values := make([]int, len(parts))
	for ii, part := range parts {
		var err error
		values[ii], err = strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value %q for -%s", value, flagName)
		}
	}
	return values, nil
}

// buildModule builds the module described by the flags: a function "main" computing
// DotGeneral(chain(DotGeneral(a, b)), w).
func buildModule() (*ir.Module, error) {
	lhsDims, err := parseInts("lhs", *flagLHS)
	if err != nil {
		return nil, err
	}
	rhsDims, err := parseInts("rhs", *flagRHS)
	if err != nil {
		return nil, err
	}
	lhsContracting, err := parseInts("lhs_contracting", *flagLHSContracting)
	if err != nil {
		return nil, err
	}
	rhsContracting, err := parseInts("rhs_contracting", *flagRHSContracting)
	if err != nil {
		return nil, err
	}
	if len(lhsDims) == 0 {
		return nil, errors.New("-lhs must have at least one dimension")
	}
	for _, dim := range slices.Concat(lhsDims, rhsDims, []int{*flagInner}) {
		if dim <= 0 {
			return nil, errors.Errorf("dimensions must be positive, got -lhs=%q -rhs=%q -inner=%d", *flagLHS, *flagRHS, *flagInner)
		}
	}
	var withUnary, withTranspose bool
	switch *flagChain {
	case "dot":
	case "unary":
		withUnary = true
	case "transpose":
		withTranspose = true
	case "unary_transpose":
		withUnary, withTranspose = true, true
	default:
		return nil, errors.Errorf("unknown -chain=%q", *flagChain)
	}

	// The inner contraction computes the lhs operand, or its transposition.
	rank := len(lhsDims)
	innerDims := slices.Clone(lhsDims)
	permutation := make([]int, rank)
	for axis := range permutation {
		permutation[axis] = rank - 1 - axis
	}
	if withTranspose {
		slices.Reverse(innerDims)
	}
	aDims := append(slices.Clone(innerDims[:rank-1]), *flagInner)
	bDims := []int{*flagInner, innerDims[rank-1]}

	module := ir.NewModule("tensorsplit")
	fn := module.NewFunction("main")
	a, err := fn.Parameter("a", shapes.Make(dtypes.Float32, aDims...))
	if err != nil {
		return nil, err
	}
	b, err := fn.Parameter("b", shapes.Make(dtypes.Float32, bDims...))
	if err != nil {
		return nil, err
	}
	w, err := fn.Parameter("w", shapes.Make(dtypes.Float32, rhsDims...))
	if err != nil {
		return nil, err
	}
	lhs, err := fn.DotGeneral(a, []int{rank - 1}, b, []int{0})
	if err != nil {
		return nil, err
	}
	if withTranspose {
		if lhs, err = fn.Transpose(lhs, permutation...); err != nil {
			return nil, err
		}
	}
	if withUnary {
		if lhs, err = fn.Unary(ops.OpTypeTanh, lhs); err != nil {
			return nil, err
		}
	}
	dot, err := fn.DotGeneral(lhs, lhsContracting, w, rhsContracting)
	if err != nil {
		return nil, err
	}
	if err = fn.SetRoot(dot); err != nil {
		return nil, err
	}
	if err = module.AddFunction(fn); err != nil {
		return nil, err
	}
	return module, nil
}

func countNodes(module *ir.Module) (count int) {
	for _, fn := range module.Functions() {
		count += fn.NumNodes()
	}
	return
}

// peakOperand returns the shape of the largest operand of any DotGeneral in the module.
func peakOperand(module *ir.Module) (peak shapes.Shape) {
	for _, fn := range module.Functions() {
		for _, node := range fn.PostOrder() {
			if node.OpType() != ops.OpTypeDotGeneral {
				continue
			}
			for _, operand := range node.Inputs() {
				if !peak.Ok() || operand.Shape().Size() > peak.Size() {
					peak = operand.Shape()
				}
			}
		}
	}
	return
}
