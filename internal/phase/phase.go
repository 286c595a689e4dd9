// Package phase enumerates the excitation combinations a reduction is
// trained on, and derives the simulation step budget from the actuators'
// ramp descriptions.
package phase

import (
	"math"
	"math/bits"
	"strings"

	"morpipe/internal/excite"
)

// Vector marks which actuators are active in one training run, one 0/1
// entry per actuator.
type Vector []int

// Weight returns the number of active actuators.
func (v Vector) Weight() int {
	n := 0
	for _, b := range v {
		n += b
	}
	return n
}

// Value returns the vector read as a base-2 integer, first entry most
// significant.
func (v Vector) Value() uint {
	var n uint
	for _, b := range v {
		n = n<<1 | uint(b)
	}
	return n
}

// Equal reports element-wise equality.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

func (v Vector) String() string {
	var sb strings.Builder
	for _, b := range v {
		if b == 0 {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

// Set is the ordered sequence of all 2^n vectors for n actuators: ascending
// Hamming weight, ties broken by ascending integer value, so the progression
// runs from no actuation to full actuation.
type Set []Vector

// Generate builds the full ordered set for actuatorCount actuators.
func Generate(actuatorCount int) Set {
	total := 1 << actuatorCount
	out := make(Set, 0, total)
	for weight := 0; weight <= actuatorCount; weight++ {
		for i := 0; i < total; i++ {
			if bits.OnesCount(uint(i)) != weight {
				continue
			}
			v := make(Vector, actuatorCount)
			for j := 0; j < actuatorCount; j++ {
				v[actuatorCount-1-j] = (i >> j) & 1
			}
			out = append(out, v)
		}
	}
	return out
}

// Index returns the position of v in the set, or -1.
func (s Set) Index(v Vector) int {
	for i, w := range s {
		if w.Equal(v) {
			return i
		}
	}
	return -1
}

// IterationBudget returns the number of simulation steps the training runs
// need. With an override it is used verbatim, ceiling-rounded. Otherwise it
// is the ceiling of the maximum over all ramped actuators of
//
//	((range/incr) - 1) * period + 2*period - 1
//
// or 0 when no actuator carries a ramp.
func IterationBudget(specs []*excite.Spec, override *float64) int {
	if override != nil {
		return int(math.Ceil(*override))
	}
	budget := 0
	for _, spec := range specs {
		if !spec.HasRamp() {
			continue
		}
		incr := spec.Params[excite.ParamIncrement]
		period := spec.Params[excite.ParamPeriod]
		rng := spec.Params[excite.ParamRange]
		steps := ((rng/incr)-1)*period + 2*period - 1
		if n := int(math.Ceil(steps)); n > budget {
			budget = n
		}
	}
	return budget
}
