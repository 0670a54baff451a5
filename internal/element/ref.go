// internal/element/ref.go
package element

import (
	"fmt"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

type refKind uint8

const (
	refInvalid refKind = iota
	refLocator
	refHandles
	refBound
)

// Ref is the uniform input of every interaction: a locator, an already
// resolved handle (or ordered handles), or a locator bound to a specific
// session. The zero Ref is invalid and resolves to InvalidElementReference.
type Ref struct {
	kind    refKind
	loc     Locator
	handles []driver.Handle
	drv     driver.Driver
	desc    string
}

// Referable is anything that can be used where a Ref is expected.
type Referable interface {
	Ref() Ref
}

// Ref lets a Ref satisfy Referable.
func (r Ref) Ref() Ref { return r }

// Of references a locator resolved against the resolver's own session.
func Of(l Locator) Ref {
	if l.IsZero() {
		return Ref{}
	}
	return Ref{kind: refLocator, loc: l}
}

// Handle references a single resolved handle. desc is used only in
// diagnostics.
func Handle(h driver.Handle, desc string) Ref {
	if h == nil {
		return Ref{desc: desc}
	}
	return Ref{kind: refHandles, handles: []driver.Handle{h}, desc: desc}
}

// Handles references an ordered sequence of resolved handles.
func Handles(hs []driver.Handle, desc string) Ref {
	for _, h := range hs {
		if h == nil {
			return Ref{desc: desc}
		}
	}
	return Ref{kind: refHandles, handles: hs, desc: desc}
}

// Bind ties a locator to a session. The resolver queries drv instead of its
// own driver when it normalizes the reference.
func Bind(drv driver.Driver, l Locator) Ref {
	if drv == nil || l.IsZero() {
		return Ref{}
	}
	return Ref{kind: refBound, loc: l, drv: drv}
}

// Valid reports whether the reference is one of the recognised variants.
func (r Ref) Valid() bool { return r.kind != refInvalid }

// Locator returns the locator behind the reference, if it has one.
func (r Ref) Locator() (Locator, bool) {
	if r.kind == refLocator || r.kind == refBound {
		return r.loc, true
	}
	return Locator{}, false
}

// Resolvable reports whether the reference can be re-queried, which is what
// allows stale retries and poll cycles to obtain a fresh handle.
func (r Ref) Resolvable() bool { return r.kind == refLocator || r.kind == refBound }

// Describe returns the diagnostic description of the reference.
func (r Ref) Describe() string {
	switch r.kind {
	case refLocator, refBound:
		return r.loc.String()
	case refHandles:
		if r.desc != "" {
			return r.desc
		}
		return fmt.Sprintf("<%d resolved handle(s)>", len(r.handles))
	default:
		if r.desc != "" {
			return r.desc
		}
		return "<invalid reference>"
	}
}

func (r Ref) String() string { return r.Describe() }
