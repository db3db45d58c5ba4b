// Package stamp draws an image onto a page of an existing PDF by appending an
// incremental update. The original bytes are preserved unchanged at the start
// of the output.
package stamp

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"

	ipdf "github.com/digitorus/pdfstamp/internal/pdf"
)

// StampFile reads the PDF at input, stamps it and writes the result to output.
// The output file is only created once the stamp has been applied.
func StampFile(input string, output string, stampData StampData) error {
	inputFile, err := os.Open(input)
	if err != nil {
		return err
	}
	defer func() {
		_ = inputFile.Close()
	}()

	finfo, err := inputFile.Stat()
	if err != nil {
		return err
	}
	size := finfo.Size()

	rdr, err := pdf.NewReader(inputFile, size)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Stamp(inputFile, &buf, rdr, size, stampData); err != nil {
		return err
	}

	return os.WriteFile(output, buf.Bytes(), 0o644)
}

// Stamp writes input followed by an incremental update drawing the stamp to
// output. Nothing is written to output when an error is returned.
func Stamp(input io.ReadSeeker, output io.Writer, rdr *pdf.Reader, size int64, stampData StampData) error {
	context := StampContext{
		PDFReader:  rdr,
		InputFile:  input,
		OutputFile: output,
		StampData:  stampData,
	}

	return context.StampPDF()
}

// StampPDF performs the incremental update.
func (context *StampContext) StampPDF() error {
	if context.StampData.Image == nil {
		return ErrNoImage
	}
	if context.StampData.Page == 0 {
		context.StampData.Page = 1
	}

	switch context.PDFReader.XrefInformation.Type {
	case "table", "stream":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedXref, context.PDFReader.XrefInformation.Type)
	}

	context.newXrefEntries = nil
	context.updatedXrefEntries = nil
	context.NewXrefStart = 0
	context.infoRef = ""

	size := context.PDFReader.Trailer().Key("Size").Int64()
	if size <= 0 {
		size = context.PDFReader.XrefInformation.ItemCount
	}
	if size <= 0 {
		return fmt.Errorf("trailer has no usable /Size")
	}
	context.lastXrefID = uint32(size - 1)

	page, err := ipdf.FindPage(context.PDFReader, context.StampData.Page)
	if err != nil {
		return err
	}

	context.OutputBuffer = filebuffer.New([]byte{})

	// Copy old file into new buffer.
	if _, err := context.InputFile.Seek(0, 0); err != nil {
		return err
	}
	if _, err := io.Copy(context.OutputBuffer, context.InputFile); err != nil {
		return err
	}

	// File always needs an empty line after %%EOF.
	if _, err := context.OutputBuffer.Write([]byte("\n")); err != nil {
		return err
	}

	imageID, err := context.registerImage()
	if err != nil {
		return fmt.Errorf("failed to register image: %w", err)
	}

	if err := context.updatePage(page, imageID); err != nil {
		return fmt.Errorf("failed to update page %d: %w", page.Number, err)
	}

	if err := context.updateInfo(); err != nil {
		return fmt.Errorf("failed to update document info: %w", err)
	}

	if err := context.writeXref(); err != nil {
		return fmt.Errorf("failed to write xref: %w", err)
	}

	if err := context.writeTrailer(); err != nil {
		return fmt.Errorf("failed to write trailer: %w", err)
	}

	// Write final output
	if _, err := context.OutputBuffer.Seek(0, 0); err != nil {
		return err
	}
	file_content := context.OutputBuffer.Buff.Bytes()

	if _, err := context.OutputFile.Write(file_content); err != nil {
		return err
	}

	return nil
}

// addObject appends a new indirect object and returns its object number.
func (context *StampContext) addObject(object []byte) (uint32, error) {
	id := context.lastXrefID + uint32(len(context.newXrefEntries)) + 1
	offset := int64(context.OutputBuffer.Buff.Len())

	if err := context.writeObject(id, 0, object); err != nil {
		return 0, err
	}

	context.newXrefEntries = append(context.newXrefEntries, xrefEntry{
		ID:     id,
		Offset: offset,
	})
	return id, nil
}

// updateObject appends a new revision of an existing object.
func (context *StampContext) updateObject(ref ipdf.Ref, object []byte) error {
	offset := int64(context.OutputBuffer.Buff.Len())

	if err := context.writeObject(ref.ID, ref.Gen, object); err != nil {
		return err
	}

	context.updatedXrefEntries = append(context.updatedXrefEntries, xrefEntry{
		ID:     ref.ID,
		Gen:    ref.Gen,
		Offset: offset,
	})
	return nil
}

func (context *StampContext) writeObject(id uint32, gen int, object []byte) error {
	header := strconv.FormatUint(uint64(id), 10) + " " + strconv.Itoa(gen) + " obj\n"
	if _, err := context.OutputBuffer.Write([]byte(header)); err != nil {
		return fmt.Errorf("failed to write object header: %w", err)
	}
	if _, err := context.OutputBuffer.Write(object); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if _, err := context.OutputBuffer.Write([]byte("\nendobj\n")); err != nil {
		return fmt.Errorf("failed to write object footer: %w", err)
	}
	return nil
}
