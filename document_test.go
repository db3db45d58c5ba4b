package pdfstamp

import (
	"bytes"
	"compress/zlib"
	"errors"
	"image"
	"image/png"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/images"
	ipdf "github.com/digitorus/pdfstamp/internal/pdf"
	"github.com/digitorus/pdfstamp/internal/testpdf"
)

func squareImage(t *testing.T, w, h int) *images.Image {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	sig, err := images.New("signature", buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return sig
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStampBuilder_FluentAPI(t *testing.T) {
	doc := &Document{}
	sig := &images.Image{Width: 1, Height: 1}

	sb := doc.Stamp(sig).Relative(0.1, 0.2, 0.3, 0.4).Page(3)

	want := geometry.PlacementRequest{RelativeX: 0.1, RelativeY: 0.2, RelativeWidth: 0.3, RelativeHeight: 0.4, PageIndex: 3}
	if sb.placement != want {
		t.Errorf("placement = %+v, want %+v", sb.placement, want)
	}
	if len(doc.pendingStamps) != 1 || doc.pendingStamps[0] != sb {
		t.Error("stamp was not staged")
	}

	sb.Placement(geometry.PlacementRequest{PageIndex: 2})
	if sb.placement.PageIndex != 2 || sb.placement.RelativeX != 0 {
		t.Errorf("Placement did not replace the request: %+v", sb.placement)
	}
}

func TestDocument_PageGeometry(t *testing.T) {
	pages := []testpdf.Page{{MediaBox: testpdf.Letter}, {MediaBox: testpdf.A4}}
	doc, err := OpenBytes(testpdf.Build(pages, testpdf.Options{}))
	if err != nil {
		t.Fatal(err)
	}

	if doc.NumPage() != 2 {
		t.Fatalf("NumPage = %d", doc.NumPage())
	}

	g, err := doc.PageGeometry(2)
	if err != nil {
		t.Fatal(err)
	}
	if g.WidthPoints != 595 || g.HeightPoints != 842 {
		t.Errorf("page 2 geometry = %+v", g)
	}

	if _, err := doc.PageGeometry(3); !errors.Is(err, ipdf.ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}

func TestDocument_Write(t *testing.T) {
	input := testpdf.Build(testpdf.Letters(2), testpdf.Options{})
	doc, err := OpenBytes(input)
	if err != nil {
		t.Fatal(err)
	}
	doc.SetClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) })
	doc.SetProducer("pdfstamp test")

	doc.Stamp(squareImage(t, 10, 10)).Relative(0.1, 0.1, 0.3, 0.1).Page(1)

	var out bytes.Buffer
	result, err := doc.Write(&out)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !bytes.HasPrefix(out.Bytes(), input) {
		t.Error("original bytes were not preserved")
	}
	if result.Size != int64(out.Len()) {
		t.Errorf("Size = %d, wrote %d", result.Size, out.Len())
	}
	if len(result.Stamps) != 1 {
		t.Fatalf("got %d stamps", len(result.Stamps))
	}

	s := result.Stamps[0]
	if s.Page != 1 || s.PageFallback {
		t.Errorf("page = %d (fallback %v)", s.Page, s.PageFallback)
	}
	if !near(s.Box.X, 61.2) || !near(s.Box.Y, 633.6) || !near(s.Box.Width, 183.6) || !near(s.Box.Height, 79.2) {
		t.Errorf("box = %+v", s.Box)
	}
	if !near(s.Draw.X, 113.4) || !near(s.Draw.Y, 633.6) || !near(s.Draw.Width, 79.2) || !near(s.Draw.Height, 79.2) {
		t.Errorf("draw = %+v", s.Draw)
	}
	if s.XObjectName != "Stamp1" {
		t.Errorf("XObjectName = %q", s.XObjectName)
	}
	if len(result.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", result.Warnings())
	}

	content, _, err := ipdf.PageContent(out.Bytes(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "79.2 0 0 79.2 113.4 633.6 cm") {
		t.Errorf("draw operator missing from %q", content)
	}

	// Staged stamps are consumed by Write.
	if _, err := doc.Write(&bytes.Buffer{}); !errors.Is(err, ErrNoStamps) {
		t.Errorf("second Write error = %v, want ErrNoStamps", err)
	}
}

func TestDocument_WritePageFallback(t *testing.T) {
	doc, err := OpenBytes(testpdf.Build(testpdf.Letters(2), testpdf.Options{XrefStream: true}))
	if err != nil {
		t.Fatal(err)
	}
	doc.SetCompression(zlib.NoCompression)

	doc.Stamp(squareImage(t, 4, 2)).Relative(1.0, 0.5, 0.2, 0.2).Page(7)

	var out bytes.Buffer
	result, err := doc.Write(&out)
	if err != nil {
		t.Fatal(err)
	}

	s := result.Stamps[0]
	if !s.PageFallback || s.Page != 1 || s.RequestedPage != 7 {
		t.Errorf("page fallback not applied: %+v", s)
	}
	if !s.Adjustments.OverflowFallback {
		t.Error("overflow fallback not reported")
	}
	if len(s.Warnings()) != 2 {
		t.Errorf("warnings = %v", s.Warnings())
	}
	if !near(s.Box.X, 0.15*612) || !near(s.Box.Width, 0.2*612) {
		t.Errorf("fallback box = %+v", s.Box)
	}
}

func TestDocument_WriteMultiple(t *testing.T) {
	doc, err := OpenBytes(testpdf.Build(testpdf.Letters(2), testpdf.Options{}))
	if err != nil {
		t.Fatal(err)
	}

	doc.Stamp(squareImage(t, 4, 4)).Relative(0.1, 0.1, 0.2, 0.2).Page(1)
	doc.Stamp(squareImage(t, 4, 4)).Relative(0.5, 0.5, 0.2, 0.2).Page(2)
	doc.Stamp(squareImage(t, 4, 4)).Relative(0.5, 0.5, 0.2, 0.2).Page(1)

	var out bytes.Buffer
	result, err := doc.Write(&out)
	if err != nil {
		t.Fatal(err)
	}

	names := []string{result.Stamps[0].XObjectName, result.Stamps[1].XObjectName, result.Stamps[2].XObjectName}
	if names[0] != "Stamp1" || names[1] != "Stamp1" || names[2] != "Stamp2" {
		t.Errorf("XObject names = %v", names)
	}

	doc2, err := OpenBytes(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	found, err := ipdf.ScanImages(doc2.Reader())
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 3 {
		t.Errorf("found %d images, want 3", len(found))
	}
}

func TestDocument_WriteErrors(t *testing.T) {
	data := testpdf.Build(testpdf.Letters(1), testpdf.Options{})

	t.Run("nothing staged", func(t *testing.T) {
		doc, _ := OpenBytes(data)
		if _, err := doc.Write(&bytes.Buffer{}); !errors.Is(err, ErrNoStamps) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("degenerate box", func(t *testing.T) {
		doc, _ := OpenBytes(data)
		doc.Stamp(squareImage(t, 4, 4)).Relative(0.1, 0.1, 0, 0.1)

		var out bytes.Buffer
		_, err := doc.Write(&out)
		var derr *geometry.DegenerateGeometryError
		if !errors.As(err, &derr) {
			t.Fatalf("error = %v, want DegenerateGeometryError", err)
		}
		if out.Len() != 0 {
			t.Error("output written despite the error")
		}
	})

	t.Run("invalid policy", func(t *testing.T) {
		doc, _ := OpenBytes(data)
		p := geometry.DefaultPolicy()
		p.ClampMin, p.ClampMax = 1, 0
		if err := doc.SetPolicy(p); err == nil {
			t.Error("expected SetPolicy to reject an inverted clamp range")
		}
	})
}

func TestOpen_Invalid(t *testing.T) {
	if _, err := OpenBytes([]byte("not a pdf")); err == nil {
		t.Error("expected an error for invalid data")
	}
	if _, err := OpenFile("does/not/exist.pdf"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestOpenFile(t *testing.T) {
	path := testpdf.WriteFile(t, "doc.pdf", testpdf.Build(testpdf.Letters(1), testpdf.Options{}))
	doc, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.NumPage() != 1 {
		t.Errorf("NumPage = %d", doc.NumPage())
	}
	if err := doc.Close(); err != nil {
		t.Error(err)
	}
	if err := doc.Close(); err != nil {
		t.Error("second Close should be a no-op")
	}
}
