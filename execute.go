package pdfstamp

import (
	"bytes"
	"fmt"
	"io"

	pdflib "github.com/digitorus/pdf"

	"github.com/digitorus/pdfstamp/geometry"
	ipdf "github.com/digitorus/pdfstamp/internal/pdf"
	"github.com/digitorus/pdfstamp/stamp"
)

// Write finalizes the document by executing all staged stamps.
// It performs incremental updates to the PDF and writes the resulting bytes to the provided writer.
// If multiple stamps were staged, they are applied one after another, each as
// its own revision. Nothing is written when an error is returned.
func (d *Document) Write(output io.Writer) (*Result, error) {
	if len(d.pendingStamps) == 0 {
		return nil, ErrNoStamps
	}

	result := &Result{
		Stamps:   make([]StampInfo, 0, len(d.pendingStamps)),
		Document: d,
	}

	input := io.ReadSeeker(io.NewSectionReader(d.reader, 0, d.size))
	size := d.size
	rdr := d.rdr

	var buf bytes.Buffer
	for i, sb := range d.pendingStamps {
		info, stampData, err := d.plan(rdr, sb)
		if err != nil {
			return nil, fmt.Errorf("stamp %d: %w", i+1, err)
		}

		buf.Reset()
		context := stamp.StampContext{
			PDFReader:  rdr,
			InputFile:  input,
			OutputFile: &buf,
			StampData:  stampData,
		}
		if err := context.StampPDF(); err != nil {
			return nil, fmt.Errorf("stamp %d: %w", i+1, err)
		}
		info.XObjectName = context.XObjectName
		result.Stamps = append(result.Stamps, info)

		// The next stamp extends this revision.
		revision := bytes.Clone(buf.Bytes())
		input = bytes.NewReader(revision)
		size = int64(len(revision))
		if i < len(d.pendingStamps)-1 {
			rdr, err = pdflib.NewReader(bytes.NewReader(revision), size)
			if err != nil {
				return nil, fmt.Errorf("failed to reopen revision %d: %w", i+1, err)
			}
		}
	}

	n, err := io.Copy(output, input)
	if err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	result.Size = n

	d.pendingStamps = nil
	return result, nil
}

// plan resolves the page and computes the placement of a staged stamp.
func (d *Document) plan(rdr *pdflib.Reader, sb *StampBuilder) (StampInfo, stamp.StampData, error) {
	if sb.image == nil {
		return StampInfo{}, stamp.StampData{}, stamp.ErrNoImage
	}

	info := StampInfo{
		RequestedPage: sb.placement.PageIndex,
		Page:          sb.placement.PageIndex,
	}
	if info.Page < 1 || info.Page > rdr.NumPage() {
		info.Page = 1
		info.PageFallback = true
	}

	page, err := ipdf.FindPage(rdr, info.Page)
	if err != nil {
		return StampInfo{}, stamp.StampData{}, err
	}
	info.Geometry = geometry.PageGeometry{WidthPoints: page.Width(), HeightPoints: page.Height()}

	placement := sb.placement
	placement.PageIndex = info.Page
	info.Box, info.Draw, info.Adjustments, err = geometry.Place(placement, info.Geometry, sb.image.Dimensions(), d.policy)
	if err != nil {
		return StampInfo{}, stamp.StampData{}, err
	}

	return info, stamp.StampData{
		Page:          info.Page,
		Image:         sb.image,
		Draw:          info.Draw,
		ModDate:       d.now(),
		Producer:      d.producer,
		CompressLevel: d.compressLevel,
	}, nil
}
