package iconcollector

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// snapshotDocument is a Document over static markup, such as a
// collection page saved from a browser.
type snapshotDocument struct {
	raw string
	doc *goquery.Document
}

func newSnapshotDocument(markup string) (*snapshotDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("iconcollector: parsing markup: %w", err)
	}
	return &snapshotDocument{raw: markup, doc: doc}, nil
}

func (d *snapshotDocument) Count(_ context.Context, selector string) (int, error) {
	return d.doc.Find(selector).Length(), nil
}

func (d *snapshotDocument) Attr(_ context.Context, selector string, index int, name string) (string, bool, error) {
	sel := d.doc.Find(selector)
	if index < 0 || index >= sel.Length() {
		return "", false, fmt.Errorf("iconcollector: no element %d for %q", index, selector)
	}
	v, ok := sel.Eq(index).Attr(name)
	return v, ok, nil
}

func (d *snapshotDocument) Content(context.Context) (string, error) {
	return d.raw, nil
}
