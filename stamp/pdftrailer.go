package stamp

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	ipdf "github.com/digitorus/pdfstamp/internal/pdf"
)

func (context *StampContext) writeTrailer() error {
	if context.PDFReader.XrefInformation.Type == "table" {
		var trailer bytes.Buffer
		trailer.WriteString("trailer\n<<\n")
		fmt.Fprintf(&trailer, "  /Size %d\n", context.size())
		fmt.Fprintf(&trailer, "  /Prev %d\n", context.PDFReader.XrefInformation.StartPos)
		context.writeTrailerEntries(&trailer)
		trailer.WriteString(">>\n")

		if _, err := context.OutputBuffer.Write(trailer.Bytes()); err != nil {
			return err
		}
	}

	if _, err := context.OutputBuffer.Write([]byte("startxref\n")); err != nil {
		return err
	}

	// Write the new xref start position.
	if _, err := context.OutputBuffer.Write([]byte(strconv.FormatInt(context.NewXrefStart, 10) + "\n")); err != nil {
		return err
	}

	// Write PDF ending.
	if _, err := context.OutputBuffer.Write([]byte("%%EOF\n")); err != nil {
		return err
	}

	return nil
}

// writeTrailerEntries writes the /Root, /Info and /ID entries shared by both
// trailer forms.
func (context *StampContext) writeTrailerEntries(buffer *bytes.Buffer) {
	trailer := context.PDFReader.Trailer()

	fmt.Fprintf(buffer, "  /Root %s\n", ipdf.RefOf(trailer.Key("Root")))

	if context.infoRef != "" {
		fmt.Fprintf(buffer, "  /Info %s\n", context.infoRef)
	}

	id := trailer.Key("ID")
	if id.Len() == 2 {
		id0 := hex.EncodeToString([]byte(id.Index(0).RawString()))
		id1 := hex.EncodeToString([]byte(id.Index(1).RawString()))
		fmt.Fprintf(buffer, "  /ID [<%s><%s>]\n", id0, id1)
	}
}
