package stamp

import (
	"fmt"
	"sort"
)

// writeXref writes the cross-reference section for the appended objects in
// the same form as the section it extends.
func (context *StampContext) writeXref() error {
	sort.Slice(context.updatedXrefEntries, func(i, j int) bool {
		return context.updatedXrefEntries[i].ID < context.updatedXrefEntries[j].ID
	})

	switch context.PDFReader.XrefInformation.Type {
	case "table":
		context.NewXrefStart = int64(context.OutputBuffer.Buff.Len())
		return context.writeIncrXrefTable()
	case "stream":
		return context.writeXrefStream()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedXref, context.PDFReader.XrefInformation.Type)
	}
}

// size is the /Size of the updated document: one past the highest object
// number in use.
func (context *StampContext) size() int64 {
	return int64(context.lastXrefID) + int64(len(context.newXrefEntries)) + 1
}
