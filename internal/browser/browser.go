// Package browser is the UI automation boundary. The reconciliation core
// talks to external systems only through Page and Element; timeouts and
// missing controls are recoverable signals, not fatal errors.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrClosed reports that the underlying tab or browser is gone. The
// reconciliation loop treats it as the end of the run; everything else is
// retried or skipped.
var ErrClosed = errors.New("browser: page closed")

// ErrNotFound reports that a selector matched nothing within its timeout.
var ErrNotFound = errors.New("browser: element not found")

// Element is a handle to one matched DOM node.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	// Attr returns the attribute value and whether the attribute exists.
	Attr(ctx context.Context, name string) (string, bool, error)
	// Query finds descendants of this element.
	Query(ctx context.Context, sel string) ([]Element, error)
}

// Page is one authenticated tab on an external system.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	// WaitVisible blocks until sel is visible or the timeout elapses.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) bool
	// WaitGone blocks until sel is absent or the timeout elapses.
	WaitGone(ctx context.Context, sel string, timeout time.Duration) bool
	// Click activates sel. With force set, a raw mouse event on the first
	// matching node is used when the normal click path fails.
	Click(ctx context.Context, sel string, force bool) error
	Fill(ctx context.Context, sel, text string) error
	Text(ctx context.Context, sel string) (string, error)
	QueryAll(ctx context.Context, sel string) ([]Element, error)
	// Content returns the full rendered markup, used for diagnostic capture.
	Content(ctx context.Context) (string, error)
	PressEscape(ctx context.Context) error
}

// Cookie is a serializable snapshot of one browser cookie, used to persist
// an authenticated session across runs.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}
