package stamp

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

// registerImage encodes the stamp image as an image XObject, with a soft mask
// when it has transparency, and returns its object number.
func (context *StampContext) registerImage() (uint32, error) {
	img := context.StampData.Image
	if img == nil || len(img.Data) == 0 {
		return 0, ErrNoImage
	}

	srcImg, err := img.Decode()
	if err != nil {
		return 0, err
	}

	bounds := srcImg.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("image has no pixels")
	}

	// Baseline JPEG without alpha can be embedded as is.
	if img.Format == "jpeg" {
		switch srcImg.(type) {
		case *image.YCbCr:
			return context.addObject(streamObject(imageEntries(width, height, "/DeviceRGB", 0), "/DCTDecode", img.Data))
		case *image.Gray:
			return context.addObject(streamObject(imageEntries(width, height, "/DeviceGray", 0), "/DCTDecode", img.Data))
		}
	}

	rgb := make([]byte, 0, width*height*3)
	alpha := make([]byte, 0, width*height)
	hasAlpha := false
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(srcImg.At(x, y)).(color.NRGBA)
			if c.A < 255 {
				hasAlpha = true
			}
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
		}
	}

	var smaskID uint32
	if hasAlpha {
		data, filter, err := compress(alpha, context.StampData.CompressLevel)
		if err != nil {
			return 0, fmt.Errorf("failed to compress soft mask: %w", err)
		}
		smaskID, err = context.addObject(streamObject(imageEntries(width, height, "/DeviceGray", 0), filter, data))
		if err != nil {
			return 0, err
		}
	}

	data, filter, err := compress(rgb, context.StampData.CompressLevel)
	if err != nil {
		return 0, fmt.Errorf("failed to compress image: %w", err)
	}
	return context.addObject(streamObject(imageEntries(width, height, "/DeviceRGB", smaskID), filter, data))
}

func imageEntries(width, height int, colorSpace string, smaskID uint32) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace %s /BitsPerComponent 8", width, height, colorSpace)
	if smaskID != 0 {
		fmt.Fprintf(&buf, " /SMask %d 0 R", smaskID)
	}
	return buf.String()
}
