// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

// Set of OpType values.
type Set map[OpType]struct{}

// SetOf returns a Set with the given op types.
func SetOf(opTypes ...OpType) Set {
	s := make(Set, len(opTypes))
	for _, opType := range opTypes {
		s[opType] = struct{}{}
	}
	return s
}

// Has returns whether opType is in the set.
func (s Set) Has(opType OpType) bool {
	_, found := s[opType]
	return found
}

var (
	// StandardUnaryOperations are elementwise operations with a single operand whose output has the
	// same shape as the operand.
	StandardUnaryOperations = SetOf(
		OpTypeAbs,
		OpTypeNeg,
		OpTypeExp,
		OpTypeLog,
		OpTypeSqrt,
		OpTypeTanh,
		OpTypeLogistic,
		OpTypeSin,
		OpTypeCos,
		OpTypeSign,
		OpTypeFloor,
		OpTypeCeil,
		OpTypeRound,
		OpTypeErf,
		OpTypeTrace,
	)

	// StandardBinaryOperations are elementwise operations on two operands of the same shape.
	StandardBinaryOperations = SetOf(
		OpTypeAdd,
		OpTypeSub,
		OpTypeMul,
		OpTypeDiv,
		OpTypeMax,
		OpTypeMin,
	)

	// FloatOperations only accept float operands.
	FloatOperations = SetOf(
		OpTypeExp,
		OpTypeLog,
		OpTypeSqrt,
		OpTypeTanh,
		OpTypeLogistic,
		OpTypeSin,
		OpTypeCos,
		OpTypeFloor,
		OpTypeCeil,
		OpTypeRound,
		OpTypeErf,
	)

	// SideEffectOperations have effects observable outside the values they return, so they can
	// never be duplicated, reordered or dropped.
	SideEffectOperations = SetOf(
		OpTypeTrace,
	)
)

// IsElementwise returns whether the op is applied independently to each element of its operands.
func (opType OpType) IsElementwise() bool {
	return StandardUnaryOperations.Has(opType) || StandardBinaryOperations.Has(opType)
}

// HasSideEffect returns whether the op has effects beyond its output value.
func (opType OpType) HasSideEffect() bool {
	return SideEffectOperations.Has(opType)
}
