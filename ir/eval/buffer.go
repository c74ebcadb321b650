// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package eval

import (
	"math"
	"math/rand/v2"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/tensorsplit/types/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// SupportedDTypes lists the dtypes buffers can hold.
var SupportedDTypes = []dtypes.DType{
	dtypes.Int32, dtypes.Int64, dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64,
}

// Buffer holds the values of a dense array of a given shape, in row-major order.
type Buffer struct {
	shape shapes.Shape

	// flat is a slice of the shape's dtype, with shape.Size() elements.
	flat any
}

// NewBuffer creates a Buffer with the given shape and flat values. The flat slice is not copied.
func NewBuffer(shape shapes.Shape, flat any) (*Buffer, error) {
	flatValue := reflect.ValueOf(flat)
	if flatValue.Kind() != reflect.Slice {
		return nil, errors.Errorf("NewBuffer(%s): flat must be a slice, got %T", shape, flat)
	}
	if dtype := dtypes.FromGoType(flatValue.Type().Elem()); dtype != shape.DType {
		return nil, errors.Errorf("NewBuffer(%s): flat has dtype %s", shape, dtype)
	}
	if flatValue.Len() != shape.Size() {
		return nil, errors.Errorf("NewBuffer(%s): flat has %d elements, shape has %d", shape, flatValue.Len(), shape.Size())
	}
	return &Buffer{shape: shape.Clone(), flat: flat}, nil
}

// FromFloat64s creates a Buffer of the given shape with values converted to the shape's dtype.
func FromFloat64s(shape shapes.Shape, values []float64) (*Buffer, error) {
	if len(values) != shape.Size() {
		return nil, errors.Errorf("FromFloat64s(%s): got %d values", shape, len(values))
	}
	var flat any
	switch shape.DType {
	case dtypes.Int32:
		flat = fromFloat64s[int32](values)
	case dtypes.Int64:
		flat = fromFloat64s[int64](values)
	case dtypes.Float32:
		flat = fromFloat64s[float32](values)
	case dtypes.Float64:
		flat = fromFloat64s[float64](values)
	case dtypes.Float16:
		f16 := make([]float16.Float16, len(values))
		for ii, v := range values {
			f16[ii] = float16.Fromfloat32(float32(v))
		}
		flat = f16
	case dtypes.BFloat16:
		bf16 := make([]bfloat16.BFloat16, len(values))
		for ii, v := range values {
			bf16[ii] = bfloat16.FromFloat32(float32(v))
		}
		flat = bf16
	default:
		return nil, errors.Errorf("FromFloat64s(%s): dtype not supported", shape)
	}
	return &Buffer{shape: shape.Clone(), flat: flat}, nil
}

// Shape of the buffer.
func (b *Buffer) Shape() shapes.Shape { return b.shape }

// Flat returns the underlying flat slice, of the buffer's dtype. Don't modify it.
func (b *Buffer) Flat() any { return b.flat }

// Float64s returns a copy of the values converted to float64.
func (b *Buffer) Float64s() []float64 {
	switch flat := b.flat.(type) {
	case []int32:
		return toFloat64s(flat)
	case []int64:
		return toFloat64s(flat)
	case []float32:
		return toFloat64s(flat)
	case []float64:
		return toFloat64s(flat)
	case []float16.Float16:
		values := make([]float64, len(flat))
		for ii, v := range flat {
			values[ii] = float64(v.Float32())
		}
		return values
	case []bfloat16.BFloat16:
		values := make([]float64, len(flat))
		for ii, v := range flat {
			values[ii] = float64(v.Float32())
		}
		return values
	}
	exceptions.Panicf("Buffer.Float64s(): unsupported flat type %T", b.flat)
	return nil
}

func toFloat64s[T constraints.Integer | constraints.Float](flat []T) []float64 {
	values := make([]float64, len(flat))
	for ii, v := range flat {
		values[ii] = float64(v)
	}
	return values
}

func fromFloat64s[T constraints.Integer | constraints.Float](values []float64) []T {
	flat := make([]T, len(values))
	for ii, v := range values {
		flat[ii] = T(v)
	}
	return flat
}

// RandomBuffer returns a buffer of the given shape filled with normally distributed values.
// Integer dtypes get values rounded to the nearest integer.
func RandomBuffer(rng *rand.Rand, shape shapes.Shape) (*Buffer, error) {
	values := make([]float64, shape.Size())
	for ii := range values {
		values[ii] = rng.NormFloat64()
		if shape.DType.IsInt() {
			values[ii] = math.Round(values[ii])
		}
	}
	return FromFloat64s(shape, values)
}

// MaxAbsDiff returns the largest absolute difference between the values of two buffers with equal shapes.
func MaxAbsDiff(a, b *Buffer) (float64, error) {
	if !a.shape.Equal(b.shape) {
		return 0, errors.Errorf("MaxAbsDiff: shapes %s and %s differ", a.shape, b.shape)
	}
	aValues, bValues := a.Float64s(), b.Float64s()
	var maxDiff float64
	for ii, aValue := range aValues {
		maxDiff = max(maxDiff, math.Abs(aValue-bValues[ii]))
	}
	return maxDiff, nil
}
