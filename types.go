package pdfstamp

import (
	"errors"
	"fmt"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/images"
)

// ErrNoStamps is returned by Write when no stamp was staged.
var ErrNoStamps = errors.New("no stamps staged")

// Image is an alias for images.Image.
type Image = images.Image

// StampBuilder configures a staged stamp.
type StampBuilder struct {
	doc       *Document
	image     *images.Image
	placement geometry.PlacementRequest
}

// Placement sets the full placement request, including the page.
func (b *StampBuilder) Placement(p geometry.PlacementRequest) *StampBuilder {
	b.placement = p
	return b
}

// Relative sets the target rectangle as fractions of the page size, measured
// from the top-left corner.
func (b *StampBuilder) Relative(x, y, width, height float64) *StampBuilder {
	b.placement.RelativeX = x
	b.placement.RelativeY = y
	b.placement.RelativeWidth = width
	b.placement.RelativeHeight = height
	return b
}

// Page sets the 1-based page to draw on. A page outside the document falls
// back to the first page.
func (b *StampBuilder) Page(page int) *StampBuilder {
	b.placement.PageIndex = page
	return b
}

// Result contains the result of a Write operation.
type Result struct {
	Stamps   []StampInfo
	Document *Document
	// Size is the number of bytes written.
	Size int64
}

// Warnings collects the warnings of all stamps.
func (r *Result) Warnings() []string {
	var warnings []string
	for _, s := range r.Stamps {
		warnings = append(warnings, s.Warnings()...)
	}
	return warnings
}

// StampInfo describes how a single stamp was placed.
type StampInfo struct {
	// RequestedPage is the page asked for, Page the page drawn on.
	RequestedPage int
	Page          int
	PageFallback  bool

	Geometry    geometry.PageGeometry
	Box         geometry.AbsoluteBox
	Draw        geometry.DrawInstruction
	Adjustments geometry.Adjustments

	// XObjectName is the resource name of the embedded image.
	XObjectName string
}

// Warnings returns a human readable note for every substitution that moved
// the stamp away from where it was requested. Clamping is not reported.
func (s StampInfo) Warnings() []string {
	var warnings []string
	if s.PageFallback {
		warnings = append(warnings, fmt.Sprintf("page %d does not exist, stamped page %d", s.RequestedPage, s.Page))
	}
	if s.Adjustments.OverflowFallback {
		warnings = append(warnings, "placement was off the page, fallback position used")
	}
	return warnings
}
