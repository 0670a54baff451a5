// internal/element/errors.go
package element

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failure. A Kind is itself an error so callers can write
// errors.Is(err, element.KindStaleElement).
type Kind string

const (
	KindElementNotFound         Kind = "element not found"
	KindHostUnavailable         Kind = "host unavailable"
	KindElementDisabled         Kind = "element disabled"
	KindElementNotAvailable     Kind = "element not available"
	KindElementNotVisible       Kind = "element not visible"
	KindStaleElement            Kind = "stale element"
	KindConditionTimeout        Kind = "condition timeout"
	KindOptionNotFound          Kind = "option not found"
	KindRowNotFound             Kind = "row not found"
	KindInvalidElementReference Kind = "invalid element reference"
	KindFlowFailed              Kind = "flow failed"
	KindPageNotLoaded           Kind = "page not loaded"
)

func (k Kind) Error() string { return string(k) }

// Error is the failure returned by the resolver, the wait engine and the
// interaction layer.
type Error struct {
	Kind Kind
	// Element is the description of the element involved, if any.
	Element string
	// Condition names the wait condition for ConditionTimeout style errors.
	Condition string
	Timeout   time.Duration
	Detail    string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Condition != "" {
		fmt.Fprintf(&b, " waiting for %s", e.Condition)
	}
	if e.Element != "" {
		fmt.Fprintf(&b, ": %s", e.Element)
	}
	if e.Timeout > 0 {
		fmt.Fprintf(&b, " (after %s)", e.Timeout)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind target against the error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Errorf builds an *Error of the given kind with a formatted detail message.
func Errorf(kind Kind, desc, format string, args ...any) *Error {
	return &Error{Kind: kind, Element: desc, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, or "" if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}
