// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 provides atomic operations for float64 values.
// It uses atomic uint64 operations internally by bit-casting the float64.
//
// The zero value holds 0.0 and is ready to use.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// Load atomically loads and returns the float64 value.
func (af *AtomicFloat64) Load() float64 {
	return math.Float64frombits(af.bits.Load())
}

// Store atomically stores the given float64 value.
func (af *AtomicFloat64) Store(val float64) {
	af.bits.Store(math.Float64bits(val))
}

// CompareAndSwap atomically stores new if the current value still equals
// old (by bit pattern), reporting whether the swap happened. It lets a
// reader publish a derived value only when no writer intervened.
func (af *AtomicFloat64) CompareAndSwap(old, new float64) bool {
	return af.bits.CompareAndSwap(math.Float64bits(old), math.Float64bits(new))
}
