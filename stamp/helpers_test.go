package stamp

import (
	"bytes"
	"testing"
	"time"

	"github.com/digitorus/pdf"

	"github.com/digitorus/pdfstamp/internal/testpdf"
)

func TestPDFString(t *testing.T) {
	string_compare := map[string]string{
		"Test":    "(Test)",
		"((Test)": "(\\(\\(Test\\))",
		"\\TEst":  "(\\\\TEst)",
		"\rnew":   "(\\rnew)",
		"é":       "<feff00e9>",
	}

	for text, expected := range string_compare {
		if pdfString(text) != expected {
			t.Errorf("Error while escaping %s. Expected %s, got %s.", text, expected, pdfString(text))
		}
	}
}

func TestPdfDateTime(t *testing.T) {
	now := time.Date(2017, 9, 23, 11, 39, 0, 0, time.UTC)

	date_compare := map[time.Time]string{
		now.In(time.FixedZone("A", 3600)):        "(D:20170923123900+01'00')",
		now.In(time.FixedZone("B", -4*3600)):     "(D:20170923073900-04'00')",
		now.In(time.FixedZone("C", 5*3600+1800)): "(D:20170923170900+05'30')",
		now:                                      "(D:20170923113900Z)",
	}

	for date, expected := range date_compare {
		if pdfDateTime(date) != expected {
			t.Errorf("Error while converting date %s to string. Expected %s, got %s.", date.String(), expected, pdfDateTime(date))
		}
	}
}

func TestPDFName(t *testing.T) {
	name_compare := map[string]string{
		"Stamp1":     "/Stamp1",
		"A B":        "/A#20B",
		"x/y":        "/x#2Fy",
		"100%":       "/100#25",
		"Lime Green": "/Lime#20Green",
	}

	for name, expected := range name_compare {
		if got := pdfName(name); got != expected {
			t.Errorf("pdfName(%q) = %s, want %s", name, got, expected)
		}
	}
}

func TestFormatReal(t *testing.T) {
	real_compare := map[float64]string{
		0:         "0",
		1:         "1",
		-0.00001:  "0",
		113.4:     "113.4",
		633.6:     "633.6",
		1.23456:   "1.2346",
		-72.5:     "-72.5",
		612.00001: "612",
	}

	for f, expected := range real_compare {
		if got := formatReal(f); got != expected {
			t.Errorf("formatReal(%v) = %s, want %s", f, got, expected)
		}
	}
}

func TestWriteValue(t *testing.T) {
	pages := []testpdf.Page{{
		MediaBox:  testpdf.Letter,
		Resources: "<< /Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >> /ProcSet [/PDF /Text] >>",
	}}
	data := testpdf.Build(pages, testpdf.Options{})
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	page := rdr.Page(1).V
	var buf bytes.Buffer
	if err := writeValue(&buf, page, page); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	for _, want := range []string{
		"/Parent 2 0 R",
		"/MediaBox [0 0 612 792]",
		"/BaseFont /Helvetica",
		"/ProcSet [/PDF /Text]",
		"/Type /Page",
	} {
		if !bytes.Contains([]byte(got), []byte(want)) {
			t.Errorf("serialized page %q does not contain %q", got, want)
		}
	}
}
