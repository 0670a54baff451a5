// internal/element/locator.go
// Package element holds the locator data model and the resolver that turns
// element references into live driver handles.
package element

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// Locator identifies DOM nodes by strategy and selector. It carries no state;
// every use is a fresh query.
type Locator struct {
	By       driver.By `mapstructure:"by" yaml:"by"`
	Selector string    `mapstructure:"selector" yaml:"selector"`
}

// CSS returns a CSS selector locator.
func CSS(selector string) Locator { return Locator{By: driver.ByCSS, Selector: selector} }

// XPath returns an XPath locator.
func XPath(selector string) Locator { return Locator{By: driver.ByXPath, Selector: selector} }

// ParseLocator builds a locator from a textual strategy name. Names containing
// "xpath" select XPath, names containing "css" or an empty name select CSS.
func ParseLocator(strategy, selector string) (Locator, error) {
	s := strings.ToLower(strings.TrimSpace(strategy))
	switch {
	case strings.Contains(s, "xpath"):
		return XPath(selector), nil
	case s == "", strings.Contains(s, "css"):
		return CSS(selector), nil
	default:
		return Locator{}, Errorf(KindInvalidElementReference, selector, "unknown locator strategy %q", strategy)
	}
}

// String renders the locator as ("STRATEGY", "selector") for diagnostics.
func (l Locator) String() string {
	return fmt.Sprintf("(%q, %q)", l.By.String(), l.Selector)
}

// IsZero reports whether the locator has no selector.
func (l Locator) IsZero() bool { return l.Selector == "" }

// Ref wraps the locator as an element reference.
func (l Locator) Ref() Ref { return Of(l) }

// Format substitutes args into the selector, for locator templates such as
// calendar date cells.
func (l Locator) Format(args ...any) Locator {
	return Locator{By: l.By, Selector: fmt.Sprintf(l.Selector, args...)}
}
