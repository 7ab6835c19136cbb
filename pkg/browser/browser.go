// Package browser defines the browser automation capability that drives
// search result pages. Implement the Browser interface to plug in a different
// automation backend; the scraping logic only depends on this contract.
package browser

import (
	"context"
	"errors"
	"time"
)

// Browser abstracts a single browser session owned by one caller.
//
// Lookups return an optional result: a missing element is reported as
// found == false with a nil error. Errors are reserved for a session that can
// no longer answer (closed, crashed, context cancelled).
type Browser interface {
	// Navigate loads url in the session's tab.
	Navigate(ctx context.Context, url string) error

	// WaitFor polls until selector matches or timeout elapses.
	// Returns an error wrapping ErrTimeout on expiry.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Find returns the first element matching selector, if any.
	Find(ctx context.Context, selector string) (Element, bool, error)

	// FindAll returns every element matching selector in document order.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// Click activates el.
	Click(ctx context.Context, el Element) error

	// ScrollIntoView centres el in the viewport.
	ScrollIntoView(ctx context.Context, el Element) error

	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)

	// Close releases the session. Safe to call more than once.
	Close() error

	// Type returns a string identifying the backend (e.g., "chrome", "static").
	Type() string
}

// Element is a handle to a node in the current document.
type Element interface {
	// Find returns the first descendant matching selector, if any.
	Find(ctx context.Context, selector string) (Element, bool, error)

	// Text returns the element's rendered text.
	Text(ctx context.Context) (string, error)

	// Attr returns the named attribute and whether it is present.
	Attr(ctx context.Context, name string) (string, bool, error)
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, browser.ErrTimeout).
var (
	// ErrTimeout indicates a bounded wait expired before its condition held.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrClosed indicates the session was already closed.
	ErrClosed = errors.New("browser session closed")
	// ErrNotNavigable indicates there is no document loaded, or a clicked
	// element has no navigation target.
	ErrNotNavigable = errors.New("nothing to navigate")
	// ErrStaleElement indicates an element handle from a previous document.
	ErrStaleElement = errors.New("stale element handle")
)
