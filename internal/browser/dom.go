package browser

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// domElement serves Element from a parsed HTML snapshot.
type domElement struct {
	sel *goquery.Selection
}

func (e domElement) Text() (string, error) {
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e domElement) Attribute(name string) (string, error) {
	return e.sel.AttrOr(name, ""), nil
}

func (e domElement) QueryAll(selector string) ([]Element, error) {
	return wrapSelection(e.sel.Find(selector)), nil
}

func wrapSelection(sel *goquery.Selection) []Element {
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, domElement{sel: s})
	})
	return elements
}

func parseDocument(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}
