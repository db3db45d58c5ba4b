package signing

import (
	"errors"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/images"
	"github.com/digitorus/pdfstamp/integrity"
)

// Kind classifies the outcome of a signing operation.
type Kind int

const (
	KindOK Kind = iota
	// KindInvalidInput is malformed request data.
	KindInvalidInput
	// KindUnprocessable is well formed input that describes nothing drawable.
	KindUnprocessable
	// KindIntegrity is a failed digest computation.
	KindIntegrity
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "success"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnprocessable:
		return "unprocessable"
	case KindIntegrity:
		return "integrity_error"
	default:
		return "internal_error"
	}
}

// Classify returns the Kind of err.
func Classify(err error) Kind {
	if err == nil {
		return KindOK
	}

	var (
		imgErr   *images.InvalidImageDataError
		emptyErr *geometry.EmptyImageError
		degErr   *geometry.DegenerateGeometryError
		intErr   *integrity.IntegrityComputationError
	)
	switch {
	case errors.As(err, &imgErr):
		return KindInvalidInput
	case errors.As(err, &emptyErr), errors.As(err, &degErr):
		return KindUnprocessable
	case errors.As(err, &intErr):
		return KindIntegrity
	}
	return KindInternal
}
