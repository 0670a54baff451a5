// internal/driver/driver.go
// Package driver defines the browser session capability set that the
// resolver, wait engine and interaction layer are written against. Concrete
// backends live in the cdp, pw and static subpackages.
package driver

import (
	"context"
	"errors"
	"time"
)

// By is the locator strategy understood by a driver.
type By int

const (
	ByCSS By = iota
	ByXPath
)

// String returns the strategy name used in diagnostics.
func (b By) String() string {
	switch b {
	case ByCSS:
		return "CSS_SELECTOR"
	case ByXPath:
		return "XPATH"
	default:
		return "UNKNOWN"
	}
}

// Error classes reported by drivers. Backends wrap their native failures with
// one of these so callers can branch with errors.Is.
var (
	ErrStale           = errors.New("stale element reference")
	ErrNotInteractable = errors.New("element not interactable")
	ErrNoAlert         = errors.New("no alert open")
	ErrNoWindow        = errors.New("no such window")
	ErrNoOption        = errors.New("no such option")
	ErrUnsupported     = errors.New("operation not supported by driver")
)

// Rect is an element's position and size in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Handle is a lease on a live DOM node. It is valid only until the document
// mutates; use after that returns an error wrapping ErrStale.
type Handle interface {
	Click(ctx context.Context) error
	// ClickAt clicks at an offset of dx, dy from the centre of the node.
	ClickAt(ctx context.Context, dx, dy float64) error
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	IsSelected(ctx context.Context) (bool, error)
	// Attribute returns the attribute value and whether it was present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Text(ctx context.Context) (string, error)
	CSSValue(ctx context.Context, property string) (string, error)
	Rect(ctx context.Context) (Rect, error)
	ScrollIntoView(ctx context.Context) error
	Hover(ctx context.Context, dx, dy float64) error
	SetFiles(ctx context.Context, paths ...string) error
	// SelectByText picks the option of a native <select> whose visible text
	// equals text. It returns ErrNoOption when none matches.
	SelectByText(ctx context.Context, text string) error
	// SetValue assigns the value property directly, bypassing key events.
	SetValue(ctx context.Context, value string) error
	// Find runs a child query scoped to this node.
	Find(ctx context.Context, by By, selector string) ([]Handle, error)
}

// Alert is an open native dialog.
type Alert interface {
	Text(ctx context.Context) (string, error)
	Accept(ctx context.Context) error
	Dismiss(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
}

// Driver is one browser session. Implementations are not required to be safe
// for concurrent use; a session is driven by a single caller.
type Driver interface {
	// Find queries the current document. budget is the implicit wait the
	// backend may spend before returning an empty result; it is passed on
	// every call rather than stored on the session.
	Find(ctx context.Context, by By, selector string, budget time.Duration) ([]Handle, error)
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
	ScrollTo(ctx context.Context, x, y float64) error
	ViewportHeight(ctx context.Context) (float64, error)
	Windows(ctx context.Context) ([]string, error)
	SwitchWindow(ctx context.Context, id string) error
	// Alert returns the open dialog or an error wrapping ErrNoAlert.
	Alert(ctx context.Context) (Alert, error)
	DragAndDrop(ctx context.Context, src, dst Handle) error
	Close(ctx context.Context) error
}

// IsStale reports whether err was caused by a stale reference.
func IsStale(err error) bool { return errors.Is(err, ErrStale) }

// IsNotInteractable reports whether err was caused by a node that could not
// receive input.
func IsNotInteractable(err error) bool { return errors.Is(err, ErrNotInteractable) }
