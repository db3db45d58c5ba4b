package stamp

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/digitorus/pdf"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// writeValue serializes v. Values that were loaded through a different
// object than parent are written as indirect references.
func writeValue(buf *bytes.Buffer, v pdf.Value, parent pdf.Value) error {
	if ptr := v.GetPtr(); ptr != parent.GetPtr() && ptr.GetID() > 0 {
		fmt.Fprintf(buf, "%d %d R", ptr.GetID(), ptr.GetGen())
		return nil
	}

	switch v.Kind() {
	case pdf.Null:
		buf.WriteString("null")
	case pdf.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case pdf.Integer:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case pdf.Real:
		buf.WriteString(formatReal(v.Float64()))
	case pdf.String:
		buf.WriteString("<" + hex.EncodeToString([]byte(v.RawString())) + ">")
	case pdf.Name:
		buf.WriteString(pdfName(v.Name()))
	case pdf.Array:
		buf.WriteString("[")
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteString(" ")
			}
			if err := writeValue(buf, v.Index(i), v); err != nil {
				return err
			}
		}
		buf.WriteString("]")
	case pdf.Dict:
		return writeDict(buf, v, nil)
	default:
		return fmt.Errorf("cannot serialize direct %v value", v.Kind())
	}
	return nil
}

// writeDict serializes the dictionary v, skipping the keys in skip.
func writeDict(buf *bytes.Buffer, v pdf.Value, skip map[string]bool) error {
	buf.WriteString("<<")
	if err := writeDictEntries(buf, v, skip); err != nil {
		return err
	}
	buf.WriteString(" >>")
	return nil
}

func writeDictEntries(buf *bytes.Buffer, v pdf.Value, skip map[string]bool) error {
	for _, key := range v.Keys() {
		if skip[key] {
			continue
		}
		buf.WriteString(" " + pdfName(key) + " ")
		if err := writeValue(buf, v.Key(key), v); err != nil {
			return fmt.Errorf("/%s: %w", key, err)
		}
	}
	return nil
}

// pdfName escapes a name so that it survives delimiters and whitespace.
func pdfName(name string) string {
	var b strings.Builder
	b.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '!' || c > '~' || strings.IndexByte("#/()<>[]{}%", c) >= 0 {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func formatReal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

func pdfString(text string) string {
	if !isASCII(text) {
		// UTF-16BE with byte order mark, hex encoded.
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err == nil {
			return "<" + hex.EncodeToString([]byte(res)) + ">"
		}
		text = strings.Map(func(r rune) rune {
			if r > 0x7e {
				return '?'
			}
			return r
		}, text)
	}

	// PDFDocEncoded
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, "\r", "\\r")
	text = "(" + text + ")"

	return text
}

func pdfDateTime(date time.Time) string {
	_, offset := date.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	if offset == 0 {
		return pdfString("D:" + date.Format("20060102150405") + "Z")
	}

	return pdfString(fmt.Sprintf("D:%s%s%02d'%02d'", date.Format("20060102150405"), sign, offset/3600, (offset%3600)/60))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7e {
			return false
		}
	}
	return true
}

// compress deflates data at level. It returns the data unchanged and an empty
// filter when compression is disabled.
func compress(data []byte, level int) ([]byte, string, error) {
	if level == zlib.NoCompression {
		return data, "", nil
	}
	var b bytes.Buffer
	w, err := zlib.NewWriterLevel(&b, level)
	if err != nil {
		return nil, "", err
	}
	if _, err := w.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return b.Bytes(), "/FlateDecode", nil
}

// streamObject assembles a stream object body from dictionary entries and
// the (already encoded) stream data.
func streamObject(entries string, filter string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<")
	if entries != "" {
		buf.WriteString(" " + entries)
	}
	if filter != "" {
		buf.WriteString(" /Filter " + filter)
	}
	fmt.Fprintf(&buf, " /Length %d >>\nstream\n", len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	return buf.Bytes()
}
