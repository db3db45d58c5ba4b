// Package images decodes and validates signature images.
//
// Signatures arrive as raw bytes or as base64, optionally wrapped in a data URL
// ("data:image/png;base64,..."). PNG, JPEG and GIF are supported through the
// standard library; BMP, TIFF and WebP through golang.org/x/image.
package images

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // register GIF format
	_ "image/jpeg" // register JPEG format
	_ "image/png"  // register PNG format
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP format
	_ "golang.org/x/image/tiff" // register TIFF format
	_ "golang.org/x/image/webp" // register WebP format

	"github.com/digitorus/pdfstamp/geometry"
)

const (
	// MaxDimension caps the width and height of a signature image.
	MaxDimension = 16384
	// MaxPixels bounds the decoded pixel count so the RGB and alpha buffers
	// written to the PDF stay small.
	MaxPixels int64 = 16 * 1024 * 1024
)

// InvalidImageDataError indicates that the submitted signature could not be
// used as an image.
type InvalidImageDataError struct {
	Msg string
	Err error
}

func (e *InvalidImageDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid image data: %s: %v", e.Msg, e.Err)
	}
	return "invalid image data: " + e.Msg
}

func (e *InvalidImageDataError) Unwrap() error {
	return e.Err
}

// Image represents a decoded signature image.
type Image struct {
	Name   string // Identifier for the image
	Data   []byte // Raw encoded image data
	Hash   string // SHA256 hash of the raw data
	Format string // Format name as registered with the image package ("png", "jpeg", ...)
	Width  int    // Intrinsic width in pixels
	Height int    // Intrinsic height in pixels
}

// New validates data and returns an Image describing it. Only the image
// header is decoded.
func New(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, &InvalidImageDataError{Msg: "no data"}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidImageDataError{Msg: "unrecognized image", Err: err}
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, &InvalidImageDataError{Msg: fmt.Sprintf("image dimension exceeds limit (%d x %d)", cfg.Width, cfg.Height)}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, &InvalidImageDataError{Msg: fmt.Sprintf("image pixel count %d exceeds limit %d", pixels, MaxPixels)}
	}

	h := sha256.Sum256(data)
	return &Image{
		Name:   name,
		Data:   data,
		Hash:   hex.EncodeToString(h[:]),
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// FromBase64 decodes a base64 payload, with or without a data URL prefix, and
// validates the result with New.
func FromBase64(name, encoded string) (*Image, error) {
	data, err := DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	return New(name, data)
}

// DecodeBase64 strips an optional data URL header and decodes the payload.
// Standard and URL-safe alphabets are accepted, padded or not.
func DecodeBase64(encoded string) ([]byte, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, &InvalidImageDataError{Msg: "data URL has no payload"}
		}
		header := payload[len("data:"):comma]
		if !strings.HasSuffix(header, ";base64") {
			return nil, &InvalidImageDataError{Msg: "data URL is not base64 encoded"}
		}
		if mediaType := strings.TrimSuffix(header, ";base64"); mediaType != "" && !strings.HasPrefix(mediaType, "image/") {
			return nil, &InvalidImageDataError{Msg: fmt.Sprintf("media type %q is not an image", mediaType)}
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, &InvalidImageDataError{Msg: "empty payload"}
	}

	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(payload); err == nil {
			return data, nil
		}
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return nil, &InvalidImageDataError{Msg: "malformed base64", Err: err}
}

// Dimensions returns the intrinsic size of the image for placement.
func (i *Image) Dimensions() geometry.ImageDimensions {
	return geometry.ImageDimensions{
		Width:  float64(i.Width),
		Height: float64(i.Height),
	}
}

// Decode fully decodes the image pixels.
func (i *Image) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, &InvalidImageDataError{Msg: "decode pixels", Err: err}
	}
	return img, nil
}
