package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{0, 0, 0, uint8(255 * ((x + y) % 2))})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func TestNew_Formats(t *testing.T) {
	src := testImage(30, 12)

	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, src) },
		"jpeg": func(b *bytes.Buffer) error { return jpeg.Encode(b, src, nil) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, src) },
		"tiff": func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) },
	}

	for format, encode := range encoders {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := encode(&buf); err != nil {
				t.Fatalf("encode: %v", err)
			}

			img, err := New("sig", buf.Bytes())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if img.Format != format {
				t.Errorf("format = %q, want %q", img.Format, format)
			}
			if img.Width != 30 || img.Height != 12 {
				t.Errorf("size = %dx%d, want 30x12", img.Width, img.Height)
			}
			if d := img.Dimensions(); d.Width != 30 || d.Height != 12 {
				t.Errorf("dimensions = %+v", d)
			}
			if len(img.Hash) != 64 {
				t.Errorf("hash %q is not a hex SHA256", img.Hash)
			}
			if _, err := img.Decode(); err != nil {
				t.Errorf("Decode: %v", err)
			}
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := map[string][]byte{
		"empty":     nil,
		"text":      []byte("definitely not an image"),
		"truncated": encodePNG(t, 4, 4)[:20],
		"gif magic": []byte("GIF89a..."),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New("sig", data)
			var ierr *InvalidImageDataError
			if !errors.As(err, &ierr) {
				t.Fatalf("expected InvalidImageDataError, got %v", err)
			}
		})
	}
}

func TestNew_TooLarge(t *testing.T) {
	// Only the header is decoded, so a large but cheap image is enough.
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, MaxDimension+1, 1))); err != nil {
		t.Fatal(err)
	}
	_, err := New("wide", buf.Bytes())
	var ierr *InvalidImageDataError
	if !errors.As(err, &ierr) || !strings.Contains(err.Error(), "exceeds limit") {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestFromBase64(t *testing.T) {
	raw := encodePNG(t, 10, 10)
	std := base64.StdEncoding.EncodeToString(raw)

	inputs := map[string]string{
		"data url":    "data:image/png;base64," + std,
		"bare":        std,
		"unpadded":    base64.RawStdEncoding.EncodeToString(raw),
		"url safe":    base64.URLEncoding.EncodeToString(raw),
		"line breaks": std[:16] + "\n" + std[16:32] + "\r\n" + std[32:],
		"no mime":     "data:;base64," + std,
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			img, err := FromBase64("sig", in)
			if err != nil {
				t.Fatalf("FromBase64: %v", err)
			}
			if !bytes.Equal(img.Data, raw) {
				t.Error("decoded bytes differ from source")
			}
			if img.Width != 10 || img.Height != 10 {
				t.Errorf("size = %dx%d", img.Width, img.Height)
			}
		})
	}
}

func TestFromBase64_Invalid(t *testing.T) {
	inputs := map[string]string{
		"empty":          "",
		"blank":          "   ",
		"no comma":       "data:image/png;base64",
		"empty payload":  "data:image/png;base64,",
		"not base64":     "data:image/png;base64,@@@@",
		"plain data url": "data:image/png," + "abc",
		"wrong media":    "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hi")),
		"short garbage":  "abc",
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := FromBase64("sig", in)
			var ierr *InvalidImageDataError
			if !errors.As(err, &ierr) {
				t.Fatalf("expected InvalidImageDataError, got %v", err)
			}
		})
	}
}
