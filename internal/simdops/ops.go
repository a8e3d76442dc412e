// Package simdops provides generic SIMD operations for float32 and float64
// feature data, delegating to github.com/tphakala/simd.
package simdops

import (
	"github.com/tphakala/simd/f32"
	"github.com/tphakala/simd/f64"
)

// Float is the type constraint for supported floating-point types.
type Float interface {
	float32 | float64
}

// Ops provides SIMD-accelerated operations for type F.
type Ops[F Float] struct {
	// Scale multiplies each element by scalar s: dst[i] = a[i] * s
	Scale func(dst, a []F, s F)
}

var (
	ops32 = Ops[float32]{
		Scale: f32.Scale,
	}
	ops64 = Ops[float64]{
		Scale: f64.Scale,
	}
)

// For returns the Ops instance for type F.
func For[F Float]() *Ops[F] {
	var zero F
	switch any(zero).(type) {
	case float32:
		ops, ok := any(&ops32).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float32")
		}
		return ops
	case float64:
		ops, ok := any(&ops64).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float64")
		}
		return ops
	default:
		panic("simdops: unsupported float type")
	}
}

// Normalize converts integer PCM samples to floats in [-1, 1] by scaling with
// 1/maxVal.
func Normalize[F Float](dst []F, samples []int, maxVal float64) {
	for i, s := range samples {
		dst[i] = F(s)
	}
	For[F]().Scale(dst, dst, F(1/maxVal))
}
