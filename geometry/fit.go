package geometry

import "fmt"

// FitCentered scales an image to the largest size that fits inside target
// without changing its aspect ratio, and centers it on the axis that is not
// filled.
//
// An image with zero width or height yields an *EmptyImageError. A target
// with no area yields a *DegenerateGeometryError; neither case can be drawn.
func FitCentered(target AbsoluteBox, image ImageDimensions) (DrawInstruction, error) {
	if image.Width <= 0 || image.Height <= 0 {
		return DrawInstruction{}, &EmptyImageError{Width: image.Width, Height: image.Height}
	}
	if target.Height <= 0 || target.Width <= 0 {
		return DrawInstruction{}, &DegenerateGeometryError{
			Msg: fmt.Sprintf("target box %.2fx%.2f has no area", target.Width, target.Height),
		}
	}

	boxRatio := target.Width / target.Height
	imageRatio := image.Ratio()

	var width, height float64
	if imageRatio > boxRatio {
		// Relatively wider than the box: width binds.
		width = target.Width
		height = width / imageRatio
	} else {
		height = target.Height
		width = height * imageRatio
	}

	offsetX := (target.Width - width) / 2
	offsetY := (target.Height - height) / 2

	return DrawInstruction{
		X:      target.X + offsetX,
		Y:      target.Y + offsetY,
		Width:  width,
		Height: height,
	}, nil
}

// Place runs the full placement pipeline: it converts the placement to an
// absolute box on page and fits an image of the given size into it.
func Place(placement PlacementRequest, page PageGeometry, image ImageDimensions, policy Policy) (AbsoluteBox, DrawInstruction, Adjustments, error) {
	if err := page.Validate(); err != nil {
		return AbsoluteBox{}, DrawInstruction{}, Adjustments{}, err
	}
	box, adj := ToAbsoluteBox(placement, page, policy)
	draw, err := FitCentered(box, image)
	if err != nil {
		return box, DrawInstruction{}, adj, err
	}
	return box, draw, adj, nil
}
