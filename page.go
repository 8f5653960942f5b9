package iconcollector

import (
	"context"
	"time"
)

// Selectors and markup patterns of the catalog's collection page.
const (
	// gridImageSelector matches icons rendered in the collection grid.
	gridImageSelector = `div.app-grid-icon__image img`
	// hostImageSelector matches any image negotiated from the image host.
	hostImageSelector = `img[srcset*="icons8.com"]`
	// probeSelector is satisfied by either icon signature.
	probeSelector = gridImageSelector + ", " + hostImageSelector
	// iconWaitSelector is waited on before pagination starts.
	iconWaitSelector = `.app-grid-icon__image, .collection-icon, img[srcset*="icons8"]`
)

// Document is a read-only view of a rendered page. Element positions are
// addressed by index into the list of elements matching a selector, in
// document order.
type Document interface {
	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)
	// Attr returns the named attribute of the index-th element matching
	// selector. ok is false when the attribute is absent.
	Attr(ctx context.Context, selector string, index int, name string) (value string, ok bool, err error)
	// Content returns the serialized markup of the whole document.
	Content(ctx context.Context) (string, error)
}

// Page is a live, navigable document.
type Page interface {
	Document

	// Navigate loads rawURL and waits for the load to be committed.
	Navigate(ctx context.Context, rawURL string) error
	// WaitVisible blocks until an element matching selector is visible or
	// timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// ScrollToBottom scrolls the window to the current end of the document.
	ScrollToBottom(ctx context.Context) error
	// Fill types value into the first element matching selector. It waits
	// for the element until ctx ends.
	Fill(ctx context.Context, selector, value string) error
	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Evaluate runs a JavaScript expression and decodes its result into res,
	// which may be nil.
	Evaluate(ctx context.Context, expression string, res any) error
	// Title returns the document title.
	Title(ctx context.Context) (string, error)
}

// Session is a page bound to a browser profile. Close releases the
// browser and is safe to call more than once.
type Session interface {
	Page
	Close() error
}
