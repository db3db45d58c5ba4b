// Package pdfstamp places signature images onto pages of existing PDF
// documents.
//
// A placement is given in relative, top-left-origin coordinates as produced by
// a document viewer. It is converted to PDF points, sanitized, and the image
// is fitted into the resulting box without distortion. The image is drawn by
// appending an incremental update, so the original bytes stay intact.
//
// Basic usage:
//
//	doc, err := pdfstamp.OpenFile("contract.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sig, err := images.FromBase64("signature", payload)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	doc.Stamp(sig).Relative(0.1, 0.1, 0.3, 0.1).Page(1)
//
//	result, err := doc.Write(output)
package pdfstamp

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"
	"time"

	pdflib "github.com/digitorus/pdf"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/images"
	ipdf "github.com/digitorus/pdfstamp/internal/pdf"
)

// Document represents a PDF document that can be stamped.
type Document struct {
	reader io.ReaderAt
	size   int64
	rdr    *pdflib.Reader
	closer io.Closer

	// Staged operations
	pendingStamps []*StampBuilder

	// Document settings
	compressLevel int
	policy        geometry.Policy
	producer      string
	now           func() time.Time
}

// Open initializes a PDF Document from an io.ReaderAt (e.g., an open file or memory buffer).
// The size parameter must be the total size of the PDF in bytes.
func Open(reader io.ReaderAt, size int64) (*Document, error) {
	rdr, err := pdflib.NewReader(reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Document{
		reader:        reader,
		size:          size,
		rdr:           rdr,
		compressLevel: zlib.DefaultCompression,
		policy:        geometry.DefaultPolicy(),
		now:           time.Now,
	}, nil
}

// OpenBytes initializes a PDF Document from an in-memory PDF. The slice must
// not be modified while the document is in use.
func OpenBytes(data []byte) (*Document, error) {
	return Open(bytes.NewReader(data), int64(len(data)))
}

// OpenFile is a convenience method to initialize a PDF Document from a file on disk.
// The file stays open until Close is called.
func OpenFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	finfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	doc, err := Open(file, finfo.Size())
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	doc.closer = file
	return doc, nil
}

// Close releases the file opened by OpenFile. It is a no-op for documents
// opened from a reader or bytes.
func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// SetCompression configures the zlib compression level for new objects added to the PDF.
// Supported levels are zlib.NoCompression, zlib.BestSpeed, zlib.BestCompression, or zlib.DefaultCompression.
func (d *Document) SetCompression(level int) {
	d.compressLevel = level
}

// SetPolicy replaces the sanitization policy used to convert placements.
func (d *Document) SetPolicy(p geometry.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	d.policy = p
	return nil
}

// SetProducer sets the /Producer written to the document information
// dictionary by Write. It is left untouched when empty.
func (d *Document) SetProducer(producer string) {
	d.producer = producer
}

// SetClock overrides the time source for the modification date.
func (d *Document) SetClock(now func() time.Time) {
	d.now = now
}

// Reader returns the underlying PDF reader.
func (d *Document) Reader() *pdflib.Reader {
	return d.rdr
}

// NumPage returns the number of pages in the document.
func (d *Document) NumPage() int {
	return d.rdr.NumPage()
}

// PageGeometry returns the size of the 1-based page in points, taken from its
// (possibly inherited) MediaBox.
func (d *Document) PageGeometry(page int) (geometry.PageGeometry, error) {
	p, err := ipdf.FindPage(d.rdr, page)
	if err != nil {
		return geometry.PageGeometry{}, err
	}
	return geometry.PageGeometry{WidthPoints: p.Width(), HeightPoints: p.Height()}, nil
}

// Stamp stages a signature image for placement. The image is only drawn when
// doc.Write() is called.
func (d *Document) Stamp(img *images.Image) *StampBuilder {
	sb := &StampBuilder{
		doc:   d,
		image: img,
		placement: geometry.PlacementRequest{
			PageIndex: 1,
		},
	}
	d.pendingStamps = append(d.pendingStamps, sb)
	return sb
}
