package pdf

import (
	"errors"
	"fmt"

	pdflib "github.com/digitorus/pdf"
)

// DefaultMediaBox is used for pages that declare no MediaBox, directly or
// through an ancestor. It is US Letter.
var DefaultMediaBox = [4]float64{0, 0, 612, 792}

// ErrPageNotFound is returned when the page tree has no leaf for a page number.
var ErrPageNotFound = errors.New("page not found")

// maxTreeDepth bounds the page tree walk so malformed, cyclic trees fail.
const maxTreeDepth = 64

// Ref is an indirect object reference.
type Ref struct {
	ID  uint32
	Gen int
}

// RefOf returns the reference through which v was loaded. Direct values
// report the reference of their enclosing object.
func RefOf(v pdflib.Value) Ref {
	ptr := v.GetPtr()
	return Ref{ID: ptr.GetID(), Gen: int(ptr.GetGen())}
}

func (r Ref) String() string {
	return fmt.Sprintf("%d %d R", r.ID, r.Gen)
}

// Page is a leaf of the page tree with its inheritable attributes resolved.
type Page struct {
	V         pdflib.Value
	Number    int
	MediaBox  [4]float64
	Resources pdflib.Value
	Rotate    int64
}

// Ref returns the reference of the page dictionary.
func (p Page) Ref() Ref {
	return RefOf(p.V)
}

// Width returns the MediaBox width in points.
func (p Page) Width() float64 {
	return abs(p.MediaBox[2] - p.MediaBox[0])
}

// Height returns the MediaBox height in points.
func (p Page) Height() float64 {
	return abs(p.MediaBox[3] - p.MediaBox[1])
}

// Origin returns the lower-left corner of the MediaBox.
func (p Page) Origin() (float64, float64) {
	return min(p.MediaBox[0], p.MediaBox[2]), min(p.MediaBox[1], p.MediaBox[3])
}

type inherited struct {
	mediaBox  pdflib.Value
	resources pdflib.Value
	rotate    pdflib.Value
}

func (in inherited) from(node pdflib.Value) inherited {
	if v := node.Key("MediaBox"); v.Kind() == pdflib.Array {
		in.mediaBox = v
	}
	if v := node.Key("Resources"); v.Kind() == pdflib.Dict {
		in.resources = v
	}
	if v := node.Key("Rotate"); v.Kind() == pdflib.Integer {
		in.rotate = v
	}
	return in
}

// FindPage returns the 1-based page pageNum of the document.
func FindPage(r *pdflib.Reader, pageNum int) (Page, error) {
	if r == nil {
		return Page{}, fmt.Errorf("no reader available")
	}
	if pageNum < 1 {
		return Page{}, fmt.Errorf("%w: page %d", ErrPageNotFound, pageNum)
	}

	pages := r.Trailer().Key("Root").Key("Pages")
	p, _, err := findPageRec(pages, pageNum, inherited{}, 0)
	if err != nil {
		return Page{}, err
	}
	if p.V.Kind() == pdflib.Null {
		return Page{}, fmt.Errorf("%w: page %d of %d", ErrPageNotFound, pageNum, r.NumPage())
	}
	p.Number = pageNum
	return p, nil
}

func findPageRec(node pdflib.Value, pageNum int, in inherited, depth int) (Page, int, error) {
	if depth > maxTreeDepth {
		return Page{}, 0, fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}
	in = in.from(node)

	kids := node.Key("Kids")
	nodeType := node.Key("Type").Name()
	if nodeType == "Page" || (nodeType == "" && kids.Kind() != pdflib.Array && node.Kind() == pdflib.Dict) {
		if pageNum == 1 {
			return leaf(node, in), 0, nil
		}
		return Page{}, pageNum - 1, nil
	}

	if kids.Kind() == pdflib.Array {
		for i := 0; i < kids.Len(); i++ {
			p, n, err := findPageRec(kids.Index(i), pageNum, in, depth+1)
			if err != nil {
				return Page{}, 0, err
			}
			if p.V.Kind() != pdflib.Null {
				return p, 0, nil
			}
			pageNum = n
		}
	}
	return Page{}, pageNum, nil
}

func leaf(node pdflib.Value, in inherited) Page {
	p := Page{
		V:         node,
		MediaBox:  DefaultMediaBox,
		Resources: in.resources,
	}
	if mb := in.mediaBox; mb.Len() >= 4 {
		for i := 0; i < 4; i++ {
			p.MediaBox[i] = mb.Index(i).Float64()
		}
	}
	if in.rotate.Kind() == pdflib.Integer {
		p.Rotate = in.rotate.Int64()
	}
	return p
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
