package pdf

import (
	"fmt"
	"sort"

	pdflib "github.com/digitorus/pdf"
)

// ImageInfo describes an image XObject referenced from a page.
type ImageInfo struct {
	Page   int
	Name   string
	ID     uint32
	Width  int64
	Height int64
	Filter string
	SMask  bool
}

// ScanImages iterates through the pages of the PDF and returns the image
// XObjects each page references in its resources.
func ScanImages(r *pdflib.Reader) ([]ImageInfo, error) {
	if r == nil {
		return nil, nil
	}

	var found []ImageInfo
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page, err := FindPage(r, i)
		if err != nil {
			return found, err
		}

		xobjects := page.Resources.Key("XObject")
		if xobjects.Kind() != pdflib.Dict {
			continue
		}

		names := xobjects.Keys()
		sort.Strings(names)
		for _, name := range names {
			obj := xobjects.Key(name)
			if obj.Kind() != pdflib.Stream || obj.Key("Subtype").Name() != "Image" {
				continue
			}
			found = append(found, ImageInfo{
				Page:   i,
				Name:   name,
				ID:     obj.GetPtr().GetID(),
				Width:  obj.Key("Width").Int64(),
				Height: obj.Key("Height").Int64(),
				Filter: obj.Key("Filter").Name(),
				SMask:  obj.Key("SMask").Kind() == pdflib.Stream,
			})
		}
	}

	return found, nil
}

// XObjectNames returns the names already used in a resource dictionary's
// /XObject subdictionary.
func XObjectNames(resources pdflib.Value) map[string]bool {
	names := make(map[string]bool)
	xobjects := resources.Key("XObject")
	if xobjects.Kind() != pdflib.Dict {
		return names
	}
	for _, name := range xobjects.Keys() {
		names[name] = true
	}
	return names
}

// UniqueName returns prefix followed by the lowest positive number that is
// not yet used in names.
func UniqueName(names map[string]bool, prefix string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if !names[name] {
			return name
		}
	}
}
