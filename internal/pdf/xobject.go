package pdf

import (
	"bytes"
	"fmt"
	"io"

	pdflib "github.com/digitorus/pdf"
)

// PageContent parses data and returns the decoded, concatenated content
// streams of a page together with its MediaBox.
func PageContent(data []byte, pageNum int) (contentStream []byte, bbox [4]float64, err error) {
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, [4]float64{}, fmt.Errorf("failed to parse PDF: %w", err)
	}

	if pageNum < 1 || pageNum > r.NumPage() {
		return nil, [4]float64{}, fmt.Errorf("page %d out of range (1-%d)", pageNum, r.NumPage())
	}

	page, err := FindPage(r, pageNum)
	if err != nil {
		return nil, [4]float64{}, err
	}
	bbox = page.MediaBox

	contents := page.V.Key("Contents")
	if contents.IsNull() {
		return nil, bbox, nil // Empty page
	}

	var buf bytes.Buffer
	if contents.Kind() == pdflib.Array {
		// Multiple content streams
		for i := 0; i < contents.Len(); i++ {
			if err := copyStream(&buf, contents.Index(i)); err != nil {
				return nil, bbox, err
			}
			buf.WriteString("\n")
		}
	} else if err := copyStream(&buf, contents); err != nil {
		return nil, bbox, err
	}

	return buf.Bytes(), bbox, nil
}

// ContentRefs returns the object numbers of the content streams of a page, in
// drawing order.
func ContentRefs(page pdflib.Value) []Ref {
	contents := page.Key("Contents")
	switch contents.Kind() {
	case pdflib.Stream:
		return []Ref{RefOf(contents)}
	case pdflib.Array:
		refs := make([]Ref, 0, contents.Len())
		for i := 0; i < contents.Len(); i++ {
			s := contents.Index(i)
			if s.Kind() == pdflib.Stream {
				refs = append(refs, RefOf(s))
			}
		}
		return refs
	}
	return nil
}

func copyStream(w io.Writer, stream pdflib.Value) error {
	if stream.Kind() != pdflib.Stream {
		return nil
	}
	reader := stream.Reader()
	if reader == nil {
		return nil
	}
	defer func() { _ = reader.Close() }()
	if _, err := io.Copy(w, reader); err != nil {
		return fmt.Errorf("failed to copy content stream: %w", err)
	}
	return nil
}
