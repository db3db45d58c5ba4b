package stamp

import (
	"bytes"
	"fmt"

	"github.com/digitorus/pdf"

	ipdf "github.com/digitorus/pdfstamp/internal/pdf"
)

// updatePage writes a new revision of the page dictionary that references the
// stamp image and draws it after the existing content.
//
// The existing content streams are wrapped in q/Q so that a graphics state
// left unbalanced by the page cannot displace the stamp.
func (context *StampContext) updatePage(page ipdf.Page, imageID uint32) error {
	context.XObjectName = ipdf.UniqueName(ipdf.XObjectNames(page.Resources), "Stamp")

	prefixID, err := context.addContentStream([]byte("q\n"))
	if err != nil {
		return err
	}
	suffixID, err := context.addContentStream(context.drawOperators(page))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("<<")
	skip := map[string]bool{"Type": true, "Resources": true, "Contents": true}
	if err := writeDictEntries(&buf, page.V, skip); err != nil {
		return err
	}

	// Always ensure /Type /Page is present and direct
	buf.WriteString(" /Type /Page")

	buf.WriteString(" /Resources ")
	if err := writeResources(&buf, page.Resources, context.XObjectName, imageID); err != nil {
		return err
	}

	fmt.Fprintf(&buf, " /Contents [%d 0 R", prefixID)
	for _, ref := range ipdf.ContentRefs(page.V) {
		buf.WriteString(" " + ref.String())
	}
	fmt.Fprintf(&buf, " %d 0 R]", suffixID)
	buf.WriteString(" >>")

	return context.updateObject(page.Ref(), buf.Bytes())
}

// writeResources writes a copy of resources with the image added to its
// /XObject subdictionary.
func writeResources(buf *bytes.Buffer, resources pdf.Value, name string, imageID uint32) error {
	buf.WriteString("<<")
	if resources.Kind() == pdf.Dict {
		if err := writeDictEntries(buf, resources, map[string]bool{"XObject": true}); err != nil {
			return err
		}
	}

	buf.WriteString(" /XObject <<")
	if xobjects := resources.Key("XObject"); xobjects.Kind() == pdf.Dict {
		if err := writeDictEntries(buf, xobjects, map[string]bool{name: true}); err != nil {
			return err
		}
	}
	fmt.Fprintf(buf, " %s %d 0 R >> >>", pdfName(name), imageID)
	return nil
}

// drawOperators closes the group opened around the existing content and
// paints the image. Draw coordinates are relative to the MediaBox origin.
func (context *StampContext) drawOperators(page ipdf.Page) []byte {
	ox, oy := page.Origin()
	d := context.StampData.Draw

	var buf bytes.Buffer
	buf.WriteString("Q\nq\n")
	fmt.Fprintf(&buf, "%s 0 0 %s %s %s cm\n", formatReal(d.Width), formatReal(d.Height), formatReal(d.X+ox), formatReal(d.Y+oy))
	fmt.Fprintf(&buf, "%s Do\n", pdfName(context.XObjectName))
	buf.WriteString("Q\n")
	return buf.Bytes()
}

func (context *StampContext) addContentStream(content []byte) (uint32, error) {
	data, filter, err := compress(content, context.StampData.CompressLevel)
	if err != nil {
		return 0, fmt.Errorf("failed to compress content stream: %w", err)
	}
	return context.addObject(streamObject("", filter, data))
}

// updateInfo records the modification in the document information
// dictionary, creating one when the document has none.
func (context *StampContext) updateInfo() error {
	info := context.PDFReader.Trailer().Key("Info")
	existing := info.Kind() == pdf.Dict && info.GetPtr().GetID() > 0

	if context.StampData.ModDate.IsZero() && context.StampData.Producer == "" {
		if existing {
			context.infoRef = ipdf.RefOf(info).String()
		}
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString("<<")
	if existing {
		if err := writeDictEntries(&buf, info, map[string]bool{"ModDate": true, "Producer": true}); err != nil {
			return err
		}
	}
	if !context.StampData.ModDate.IsZero() {
		buf.WriteString(" /ModDate " + pdfDateTime(context.StampData.ModDate))
	}
	if context.StampData.Producer != "" {
		buf.WriteString(" /Producer " + pdfString(context.StampData.Producer))
	}
	buf.WriteString(" >>")

	if existing {
		ref := ipdf.RefOf(info)
		context.infoRef = ref.String()
		return context.updateObject(ref, buf.Bytes())
	}

	id, err := context.addObject(buf.Bytes())
	if err != nil {
		return err
	}
	context.infoRef = fmt.Sprintf("%d 0 R", id)
	return nil
}
