// Package geometry converts normalized placement rectangles into PDF user
// space and fits raster images into the resulting boxes.
//
// Placements arrive from a UI where the origin is the top-left corner of the
// page and every value is a fraction of the page size. PDF user space has its
// origin in the bottom-left corner and is measured in points (1/72 inch).
// Everything in this package is a pure function over value types; no state is
// shared between calls.
package geometry

import "fmt"

// PlacementRequest describes where a signature should go, relative to the page.
// X and Y locate the top-left corner of the box measured from the top-left of
// the page; Width and Height are fractions of the page width and height.
type PlacementRequest struct {
	RelativeX      float64
	RelativeY      float64
	RelativeWidth  float64
	RelativeHeight float64

	// PageIndex is the 1-based page ordinal.
	PageIndex int
}

// PageGeometry is the size of a single page in points.
type PageGeometry struct {
	WidthPoints  float64
	HeightPoints float64
}

// Validate reports whether both dimensions are strictly positive.
func (p PageGeometry) Validate() error {
	if p.WidthPoints <= 0 || p.HeightPoints <= 0 {
		return &DegenerateGeometryError{
			Msg: fmt.Sprintf("page size %.2fx%.2f must be positive", p.WidthPoints, p.HeightPoints),
		}
	}
	return nil
}

// AbsoluteBox is a rectangle in PDF points with a bottom-left origin.
// Y is the bottom edge of the box.
type AbsoluteBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Rect returns the box as a PDF rectangle [llx lly urx ury].
func (b AbsoluteBox) Rect() [4]float64 {
	return [4]float64{b.X, b.Y, b.X + b.Width, b.Y + b.Height}
}

// ImageDimensions is the intrinsic pixel size of a decoded image.
type ImageDimensions struct {
	Width  float64
	Height float64
}

// Ratio returns width divided by height.
func (d ImageDimensions) Ratio() float64 {
	return d.Width / d.Height
}

// DrawInstruction is the final position and size at which an image is drawn,
// in the same coordinate convention as AbsoluteBox.
type DrawInstruction struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Rect returns the instruction as a PDF rectangle [llx lly urx ury].
func (d DrawInstruction) Rect() [4]float64 {
	return [4]float64{d.X, d.Y, d.X + d.Width, d.Y + d.Height}
}

// Adjustments records which sanitization steps ToAbsoluteBox applied.
type Adjustments struct {
	// ClampedX and ClampedY are set when the position was outside the
	// policy's clamp range and was pulled back into it.
	ClampedX bool
	ClampedY bool

	// OverflowFallback is set when the computed box started at or beyond the
	// right edge of the page and the fallback box was substituted.
	OverflowFallback bool
}

// Clamped reports whether either coordinate was clamped.
func (a Adjustments) Clamped() bool {
	return a.ClampedX || a.ClampedY
}
