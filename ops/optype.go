// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops enumerates the operations a node of the ir graph can perform, and groups them
// into the categories the shape inference and the optimization passes reason about.
package ops

// OpType is an enum of all operations supported by the ir graph.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant

	// Elementwise unary operations.
	OpTypeAbs
	OpTypeNeg
	OpTypeExp
	OpTypeLog
	OpTypeSqrt
	OpTypeTanh
	OpTypeLogistic
	OpTypeSin
	OpTypeCos
	OpTypeSign
	OpTypeFloor
	OpTypeCeil
	OpTypeRound
	OpTypeErf

	// OpTypeTrace is an elementwise identity that also reports its operand to the runtime: it has a side effect.
	OpTypeTrace

	// Elementwise binary operations.
	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypeMax
	OpTypeMin

	OpTypeReshape
	OpTypeBroadcast
	OpTypeTranspose
	OpTypeSlice
	OpTypeConcatenate
	OpTypeDotGeneral
	OpTypeReduceSum
	OpTypeCall

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)
