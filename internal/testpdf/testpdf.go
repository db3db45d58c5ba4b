// Package testpdf builds small, well-formed PDF files for tests.
//
// The generated files use either a classic cross-reference table or a
// compressed cross-reference stream, so both incremental update paths can be
// exercised without shipping binary fixtures.
package testpdf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Letter and A4 are common media boxes in PDF points.
var (
	Letter = [4]float64{0, 0, 612, 792}
	A4     = [4]float64{0, 0, 595, 842}
)

// Page describes a single page of a generated document.
type Page struct {
	MediaBox [4]float64
	// Content is the raw, uncompressed content stream. An empty string
	// produces a page without /Contents.
	Content string
	// Resources is written verbatim into the page dictionary when set.
	Resources string
}

// Options control the document structure.
type Options struct {
	// XrefStream writes a cross-reference stream instead of a table.
	XrefStream bool
	// InheritMediaBox moves the first page's MediaBox to the /Pages node
	// and omits it from the pages themselves.
	InheritMediaBox bool
	// Info adds a document information dictionary.
	Info bool
}

type builder struct {
	buf     bytes.Buffer
	offsets []int
}

func (b *builder) object(body string) int {
	b.offsets = append(b.offsets, b.buf.Len())
	id := len(b.offsets)
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", id, body)
	return id
}

// Build returns a document containing pages.
func Build(pages []Page, opts Options) []byte {
	b := &builder{}
	b.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	// Object numbers are fixed up front: 1 catalog, 2 pages, then one page
	// object and an optional content object per page.
	next := 3
	pageIDs := make([]int, len(pages))
	contentIDs := make([]int, len(pages))
	for i, p := range pages {
		pageIDs[i] = next
		next++
		if p.Content != "" {
			contentIDs[i] = next
			next++
		}
	}

	b.object("<< /Type /Catalog /Pages 2 0 R >>")

	var kids []string
	for _, id := range pageIDs {
		kids = append(kids, fmt.Sprintf("%d 0 R", id))
	}
	pagesDict := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), len(pages))
	if opts.InheritMediaBox && len(pages) > 0 {
		pagesDict += " /MediaBox " + box(pages[0].MediaBox)
	}
	b.object(pagesDict + " >>")

	for i, p := range pages {
		var d strings.Builder
		d.WriteString("<< /Type /Page /Parent 2 0 R")
		if !opts.InheritMediaBox {
			d.WriteString(" /MediaBox " + box(p.MediaBox))
		}
		if p.Resources != "" {
			d.WriteString(" /Resources " + p.Resources)
		}
		if contentIDs[i] != 0 {
			fmt.Fprintf(&d, " /Contents %d 0 R", contentIDs[i])
		}
		d.WriteString(" >>")
		b.object(d.String())

		if contentIDs[i] != 0 {
			b.object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content), p.Content))
		}
	}

	infoID := 0
	if opts.Info {
		infoID = b.object("<< /Title (Test document) /Producer (testpdf) >>")
	}

	trailer := "/Root 1 0 R /ID [<0123456789abcdef0123456789abcdef><0123456789abcdef0123456789abcdef>]"
	if infoID != 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", infoID)
	}

	if opts.XrefStream {
		b.xrefStream(trailer)
	} else {
		b.xrefTable(trailer)
	}
	return b.buf.Bytes()
}

func (b *builder) xrefTable(trailer string) {
	start := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", len(b.offsets)+1)
	b.buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range b.offsets {
		fmt.Fprintf(&b.buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", len(b.offsets)+1, trailer, start)
}

func (b *builder) xrefStream(trailer string) {
	start := b.buf.Len()
	id := len(b.offsets) + 1
	size := id + 1

	var rows bytes.Buffer
	row := func(t byte, off int, gen byte) {
		rows.WriteByte(t)
		var o [4]byte
		binary.BigEndian.PutUint32(o[:], uint32(off))
		rows.Write(o[:])
		rows.WriteByte(gen)
	}
	row(0, 0, 255)
	for _, off := range b.offsets {
		row(1, off, 0)
	}
	row(1, start, 0)

	var data bytes.Buffer
	w := zlib.NewWriter(&data)
	_, _ = w.Write(rows.Bytes())
	_ = w.Close()

	b.offsets = append(b.offsets, start)
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 1] /Filter /FlateDecode /Length %d %s >>\nstream\n",
		id, size, data.Len(), trailer)
	b.buf.Write(data.Bytes())
	fmt.Fprintf(&b.buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", start)
}

func box(b [4]float64) string {
	return fmt.Sprintf("[%g %g %g %g]", b[0], b[1], b[2], b[3])
}

// Letters returns n letter sized pages with a trivial content stream each.
func Letters(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{
			MediaBox: Letter,
			Content:  fmt.Sprintf("BT /F1 12 Tf 72 720 Td (Page %d) Tj ET", i+1),
		}
	}
	return pages
}

// WriteFile writes data to a file in a per-test temporary directory and
// returns its path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
