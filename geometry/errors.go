package geometry

import "fmt"

// DegenerateGeometryError indicates that a box or image has no usable area,
// which would make the aspect ratio computation divide by zero.
type DegenerateGeometryError struct {
	Msg string
}

func (e *DegenerateGeometryError) Error() string {
	return "degenerate geometry: " + e.Msg
}

// EmptyImageError indicates that a decoded image has zero width or height.
type EmptyImageError struct {
	Width, Height float64
}

func (e *EmptyImageError) Error() string {
	return fmt.Sprintf("empty image: %gx%g pixels", e.Width, e.Height)
}

// PolicyError indicates an invalid sanitization policy.
type PolicyError struct {
	Msg string
}

func (e *PolicyError) Error() string {
	return "invalid placement policy: " + e.Msg
}
