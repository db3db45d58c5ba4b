package geometry

// ToAbsoluteBox maps a top-left-origin, page-relative placement onto an
// absolute box in PDF points with a bottom-left origin.
//
// The relative position is clamped to the policy's range; the relative size
// is not. When the clamped X lands at or beyond the right edge of the page the
// box would be invisible, so a fixed fallback box is substituted instead. The
// returned Adjustments tell the caller which of these corrections happened.
func ToAbsoluteBox(placement PlacementRequest, page PageGeometry, policy Policy) (AbsoluteBox, Adjustments) {
	var adj Adjustments

	relX, clampedX := clamp(placement.RelativeX, policy.ClampMin, policy.ClampMax)
	relY, clampedY := clamp(placement.RelativeY, policy.ClampMin, policy.ClampMax)
	adj.ClampedX = clampedX
	adj.ClampedY = clampedY

	x := relX * page.WidthPoints
	width := placement.RelativeWidth * page.WidthPoints
	height := placement.RelativeHeight * page.HeightPoints

	topY := relY * page.HeightPoints

	if x >= page.WidthPoints {
		adj.OverflowFallback = true
		x = policy.FallbackX * page.WidthPoints
		width = policy.FallbackWidth * page.WidthPoints
		// The cap shortens the box from below; the requested top edge is kept.
		if maxHeight := policy.FallbackMaxHeight * page.HeightPoints; height > maxHeight {
			height = maxHeight
		}
	}

	// PDF space grows upwards, so the bottom edge is measured from the top of
	// the page down past the box.
	bottomY := page.HeightPoints - (topY + height)

	return AbsoluteBox{
		X:      x,
		Y:      bottomY,
		Width:  width,
		Height: height,
	}, adj
}
