package financial

import (
	"math"

	"github.com/heliometric/heliometric/pkg/types"
)

const (
	irrLowerBound    = -0.99
	irrUpperBound    = 1.0
	irrMaxUpperBound = 1e3
	irrTolerance     = 1e-10
	irrMaxIterations = 500
)

// NPV returns the net present value of flows at rate where flows[0] is the
// undiscounted year 0 flow.
func NPV(rate float64, flows []float64) float64 {
	var npv float64
	for y, f := range flows {
		npv += f / math.Pow(1+rate, float64(y))
	}
	return npv
}

func hasSignChange(flows []float64) bool {
	var pos, neg bool
	for _, f := range flows {
		switch {
		case f > 0:
			pos = true
		case f < 0:
			neg = true
		}
	}
	return pos && neg
}

// IRR returns the rate at which NPV(flows) is zero, solved by bisection. It
// is undefined when the flows never change sign or no root can be
// bracketed in (-99%, 100000%].
func IRR(flows []float64) types.Metric {
	if !hasSignChange(flows) {
		return types.Undefined()
	}

	lo, hi := irrLowerBound, irrUpperBound
	fLo := NPV(lo, flows)
	fHi := NPV(hi, flows)
	for fLo*fHi > 0 && hi < irrMaxUpperBound {
		hi *= 2
		fHi = NPV(hi, flows)
	}
	switch {
	case fLo == 0:
		return types.Defined(lo)
	case fHi == 0:
		return types.Defined(hi)
	case fLo*fHi > 0:
		return types.Undefined()
	}

	for range irrMaxIterations {
		mid := (lo + hi) / 2
		fMid := NPV(mid, flows)
		if fMid == 0 || (hi-lo)/2 < irrTolerance {
			return types.Defined(mid)
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return types.Defined((lo + hi) / 2)
}

// Payback returns the fractional number of years until the cumulative sum of
// flows[1:] recovers the investment -flows[0], interpolating linearly within
// the year it happens. It is undefined when that never happens.
func Payback(flows []float64) types.Metric {
	if len(flows) == 0 {
		return types.Undefined()
	}
	cumulative := flows[0]
	if cumulative >= 0 {
		return types.Defined(0)
	}
	for y := 1; y < len(flows); y++ {
		prev := cumulative
		cumulative += flows[y]
		if cumulative >= 0 {
			return types.Defined(float64(y-1) + -prev/flows[y])
		}
	}
	return types.Undefined()
}
