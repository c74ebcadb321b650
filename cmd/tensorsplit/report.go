// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/tensorsplit/ir"
	"github.com/gomlx/tensorsplit/ir/eval"
	"github.com/gomlx/tensorsplit/ops"
	"github.com/gomlx/tensorsplit/splitter"
	"github.com/gomlx/tensorsplit/types/shapes"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

// newPlainTable creates a table with alternating row styles: the first column is right-aligned, the others left-aligned.
func newPlainTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				return headerRowStyle
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

func humanizeShape(shape shapes.Shape) string {
	return fmt.Sprintf("%s: %s elements, %s", shape, humanize.Comma(int64(shape.Size())), humanize.Bytes(uint64(shape.Memory())))
}

func report(module *ir.Module, s *splitter.Splitter, changed bool, nodesBefore int, peakBefore shapes.Shape) {
	fmt.Println(titleStyle.Render("Summary"))
	table := newPlainTable()
	config := s.Config()
	table.Row("max elements", humanize.Comma(int64(config.MaxElements)))
	table.Row("target elements", humanize.Comma(int64(config.TargetElements)))
	table.Row("changed", fmt.Sprintf("%v", changed))
	table.Row("# nodes", fmt.Sprintf("%s → %s", humanize.Comma(int64(nodesBefore)), humanize.Comma(int64(countNodes(module)))))
	table.Row("# functions", humanize.Comma(int64(len(module.Functions()))))
	table.Row("peak operand before", humanizeShape(peakBefore))
	table.Row("peak operand after", humanizeShape(peakOperand(module)))
	fmt.Println(table.Render())

	rewrites := s.Rewrites()
	if len(rewrites) == 0 {
		return
	}
	fmt.Println(titleStyle.Render("Rewrites"))
	table = newPlainTable()
	table.Headers("Function", "Contraction", "Side", "Axis", "Output Axis", "Chunk Size", "# Chunks", "Operand", "Chunk", "Sub-Function")
	for _, rewrite := range rewrites {
		table.Row(rewrite.Function, rewrite.Dot, rewrite.Side.String(),
			fmt.Sprintf("%d", rewrite.OperandAxis), fmt.Sprintf("%d", rewrite.OutputAxis),
			humanize.Comma(int64(rewrite.ChunkSize)), humanize.Comma(int64(rewrite.NumChunks)),
			humanize.Comma(int64(rewrite.OperandElements)), humanize.Comma(int64(rewrite.ChunkElements)),
			rewrite.SubFunction)
	}
	fmt.Println(table.Render())
}

// verify compares the rewritten module with a freshly built original on random inputs.
func verify(rewritten *ir.Module) {
	original := must.M1(buildModule())
	entry := original.Entry()
	if multiplyAdds := countMultiplyAdds(entry); multiplyAdds > *flagVerifyMaxOps {
		klog.Warningf("Skipping -verify: the contractions take %s multiply-adds, more than -verify_max_ops=%s",
			humanize.Comma(int64(multiplyAdds)), humanize.Comma(int64(*flagVerifyMaxOps)))
		return
	}

	fmt.Println(titleStyle.Render("Verification"))
	rng := rand.New(rand.NewPCG(uint64(*flagTrials), 0))
	bar := progressbar.NewOptions(*flagTrials,
		progressbar.OptionSetDescription("trials"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionClearOnFinish(),
	)
	var maxDiff float64
	for range *flagTrials {
		params := entry.Parameters()
		inputs := make([]*eval.Buffer, len(params))
		for ii, param := range params {
			inputs[ii] = must.M1(eval.RandomBuffer(rng, param.Shape()))
		}
		want := must.M1(eval.Execute(entry, inputs...))
		got := must.M1(eval.Execute(rewritten.Entry(), inputs...))
		maxDiff = max(maxDiff, must.M1(eval.MaxAbsDiff(want, got)))
		must.M(bar.Add(1))
	}
	must.M(bar.Finish())

	table := newPlainTable()
	table.Row("trials", humanize.Comma(int64(*flagTrials)))
	table.Row("max abs difference", fmt.Sprintf("%g", maxDiff))
	fmt.Println(table.Render())
}

// countMultiplyAdds returns the number of multiply-adds needed to evaluate the contractions of fn.
func countMultiplyAdds(fn *ir.Function) (count int) {
	for _, node := range fn.PostOrder() {
		if node.OpType() != ops.OpTypeDotGeneral {
			continue
		}
		lhsContracting, _ := node.ContractingAxes()
		multiplyAdds := node.Shape().Size()
		lhsShape := node.Input(0).Shape()
		for _, axis := range lhsContracting {
			multiplyAdds *= lhsShape.Dimensions[axis]
		}
		count += multiplyAdds
	}
	return
}
