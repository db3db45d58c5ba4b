package geometry

import (
	"fmt"
	"math"
)

// Policy controls how ToAbsoluteBox sanitizes untrusted placements.
type Policy struct {
	// ClampMin and ClampMax bound the relative X and Y position.
	ClampMin float64
	ClampMax float64

	// FallbackX and FallbackWidth are fractions of the page width used when
	// the computed box would start at or beyond the right page edge.
	FallbackX     float64
	FallbackWidth float64

	// FallbackMaxHeight caps the box height, as a fraction of the page
	// height, when the fallback is applied.
	FallbackMaxHeight float64
}

// DefaultPolicy returns the policy used when nothing else is configured:
// positions clamped to [0, 1] and a fallback box at 15% of the page width,
// 20% wide and at most 10% of the page high.
func DefaultPolicy() Policy {
	return Policy{
		ClampMin:          0.0,
		ClampMax:          1.0,
		FallbackX:         0.15,
		FallbackWidth:     0.20,
		FallbackMaxHeight: 0.10,
	}
}

// Validate checks that the policy is internally consistent.
func (p Policy) Validate() error {
	if p.ClampMin > p.ClampMax {
		return &PolicyError{Msg: fmt.Sprintf("clamp range [%g, %g] is empty", p.ClampMin, p.ClampMax)}
	}
	if p.FallbackX < 0 || p.FallbackX >= 1 {
		return &PolicyError{Msg: fmt.Sprintf("fallback x %g must be in [0, 1)", p.FallbackX)}
	}
	if p.FallbackWidth <= 0 || p.FallbackX+p.FallbackWidth > 1 {
		return &PolicyError{Msg: fmt.Sprintf("fallback width %g must be positive and fit on the page", p.FallbackWidth)}
	}
	if p.FallbackMaxHeight <= 0 || p.FallbackMaxHeight > 1 {
		return &PolicyError{Msg: fmt.Sprintf("fallback height cap %g must be in (0, 1]", p.FallbackMaxHeight)}
	}
	return nil
}

// clamp pulls v into [lo, hi]. NaN is treated as lo.
func clamp(v, lo, hi float64) (float64, bool) {
	if math.IsNaN(v) {
		return lo, true
	}
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}
