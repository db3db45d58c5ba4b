package stamp

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
)

// writeXrefStream writes the cross-reference stream to the output buffer. The
// stream object indexes itself.
func (context *StampContext) writeXrefStream() error {
	// Reserve the next object number and record the offset the stream will
	// be written at, so its own entry is part of the data.
	context.NewXrefStart = int64(context.OutputBuffer.Buff.Len())
	streamID := context.lastXrefID + uint32(len(context.newXrefEntries)) + 1
	context.newXrefEntries = append(context.newXrefEntries, xrefEntry{
		ID:     streamID,
		Offset: context.NewXrefStart,
	})

	var buffer bytes.Buffer
	writeXrefStreamEntries(&buffer, context)

	streamBytes, err := encodeXrefStream(buffer.Bytes(), context.StampData.CompressLevel)
	if err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}

	var xrefStreamObject bytes.Buffer
	writeXrefStreamHeader(&xrefStreamObject, context, len(streamBytes))
	xrefStreamObject.WriteString("stream\n")
	xrefStreamObject.Write(streamBytes)
	xrefStreamObject.WriteString("\nendstream")

	return context.writeObject(streamID, 0, xrefStreamObject.Bytes())
}

// writeXrefStreamEntries writes the individual entries for the xref stream.
func writeXrefStreamEntries(buffer *bytes.Buffer, context *StampContext) {
	// Write updated entries first
	for _, entry := range context.updatedXrefEntries {
		writeXrefStreamLine(buffer, 1, entry.Offset, byte(entry.Gen))
	}

	// Write new entries
	for _, entry := range context.newXrefEntries {
		writeXrefStreamLine(buffer, 1, entry.Offset, 0)
	}
}

// encodeXrefStream applies FlateDecode without prediction.
func encodeXrefStream(data []byte, level int) ([]byte, error) {
	if level == zlib.NoCompression {
		level = zlib.DefaultCompression
	}
	var b bytes.Buffer
	w, err := zlib.NewWriterLevel(&b, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeXrefStreamHeader writes the dictionary of the xref stream, which also
// serves as the trailer of this revision.
func writeXrefStreamHeader(buffer *bytes.Buffer, context *StampContext, streamLength int) {
	var indexArray []uint32
	for _, entry := range context.updatedXrefEntries {
		indexArray = append(indexArray, entry.ID, 1)
	}
	indexArray = append(indexArray, context.lastXrefID+1, uint32(len(context.newXrefEntries)))

	buffer.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(buffer, "  /Length %d\n", streamLength)
	buffer.WriteString("  /Filter /FlateDecode\n")
	buffer.WriteString("  /W [ 1 4 1 ]\n")
	fmt.Fprintf(buffer, "  /Prev %d\n", context.PDFReader.XrefInformation.StartPos)
	fmt.Fprintf(buffer, "  /Size %d\n", context.size())

	buffer.WriteString("  /Index [")
	for _, idx := range indexArray {
		fmt.Fprintf(buffer, " %d", idx)
	}
	buffer.WriteString(" ]\n")

	context.writeTrailerEntries(buffer)
	buffer.WriteString(">>\n")
}

// writeXrefStreamLine writes a single line in the xref stream.
func writeXrefStreamLine(b *bytes.Buffer, xreftype byte, offset int64, gen byte) {
	// Write type (1 byte)
	b.WriteByte(xreftype)

	// Write offset (4 bytes)
	offsetBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(offsetBytes, uint32(offset))
	b.Write(offsetBytes)

	// Write generation (1 byte)
	b.WriteByte(gen)
}
