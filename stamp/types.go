package stamp

import (
	"errors"
	"io"
	"time"

	"github.com/digitorus/pdf"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/images"
	"github.com/mattetti/filebuffer"
)

var (
	// ErrNoImage is returned when a stamp has no image to draw.
	ErrNoImage = errors.New("no stamp image")
	// ErrUnsupportedXref is returned for documents whose cross-reference
	// section cannot be extended.
	ErrUnsupportedXref = errors.New("unsupported xref type")
)

// StampData describes a single image stamp.
type StampData struct {
	// Page is the 1-based page to draw on.
	Page int
	// Image is the signature image.
	Image *images.Image
	// Draw is the placement of the image in page space, relative to the
	// lower-left corner of the page's MediaBox.
	Draw geometry.DrawInstruction

	// ModDate, when set, is written to the document information dictionary.
	ModDate time.Time
	// Producer, when set, is written to the document information dictionary.
	Producer string

	// CompressLevel determines compression level (zlib) for stream objects.
	CompressLevel int
}

type xrefEntry struct {
	ID     uint32
	Gen    int
	Offset int64
}

// StampContext holds the state of a single incremental update.
type StampContext struct {
	InputFile    io.ReadSeeker
	OutputFile   io.Writer
	OutputBuffer *filebuffer.Buffer
	StampData    StampData
	PDFReader    *pdf.Reader
	NewXrefStart int64

	// XObjectName is the resource name the image was registered under.
	XObjectName string

	lastXrefID         uint32
	newXrefEntries     []xrefEntry
	updatedXrefEntries []xrefEntry
	infoRef            string
}
