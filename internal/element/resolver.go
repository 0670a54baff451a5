// internal/element/resolver.go
package element

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

const (
	// DefaultAliveMarkerBudget is how long the alive marker may take to
	// appear before the host is declared unavailable.
	DefaultAliveMarkerBudget = 5 * time.Second
)

// DefaultAliveMarker is present on every correctly loaded page of the target
// application.
var DefaultAliveMarker = CSS(".main-container")

// Resolver turns references into live handles against the current document.
// It never caches handles and never polls; each call is exactly one query
// bounded by the budget the caller passes.
type Resolver struct {
	drv          driver.Driver
	logger       *zap.Logger
	marker       Locator
	markerBudget time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithAliveMarker overrides the page-alive marker and its budget. A zero
// locator disables the alive check.
func WithAliveMarker(l Locator, budget time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.marker = l
		r.markerBudget = budget
	}
}

// NewResolver creates a resolver for a session.
func NewResolver(drv driver.Driver, logger *zap.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		drv:          drv,
		logger:       logger.Named("resolver"),
		marker:       DefaultAliveMarker,
		markerBudget: DefaultAliveMarkerBudget,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Driver returns the session the resolver queries.
func (r *Resolver) Driver() driver.Driver { return r.drv }

// Normalize reduces any reference to its canonical (handles, description)
// pair. Locator references are queried once with the given budget.
func (r *Resolver) Normalize(ctx context.Context, ref Referable, budget time.Duration) ([]driver.Handle, string, error) {
	if ref == nil {
		return nil, "<nil>", &Error{Kind: KindInvalidElementReference, Element: "<nil>"}
	}
	rf := ref.Ref()
	desc := rf.Describe()

	switch rf.kind {
	case refHandles:
		return rf.handles, desc, nil
	case refLocator, refBound:
		drv := r.driverFor(rf)
		r.logger.Debug("Resolving element.", zap.String("element", desc), zap.Duration("budget", budget))
		handles, err := drv.Find(ctx, rf.loc.By, rf.loc.Selector, budget)
		if err != nil {
			if ctx.Err() != nil {
				return nil, desc, ctx.Err()
			}
			return nil, desc, fmt.Errorf("query %s failed: %w", desc, err)
		}
		return handles, desc, nil
	default:
		return nil, desc, &Error{Kind: KindInvalidElementReference, Element: desc}
	}
}

// Resolve returns the first handle matching ref. With no match it fails with
// ElementNotFound, or HostUnavailable when the alive marker is gone too.
func (r *Resolver) Resolve(ctx context.Context, ref Referable, budget time.Duration) (driver.Handle, string, error) {
	handles, desc, err := r.Normalize(ctx, ref, budget)
	if err != nil {
		return nil, desc, err
	}
	if len(handles) == 0 {
		return nil, desc, r.notFound(ctx, ref.Ref(), desc, budget)
	}
	return handles[0], desc, nil
}

// ResolveAll returns every match in document order. An empty result is not
// an error.
func (r *Resolver) ResolveAll(ctx context.Context, ref Referable, budget time.Duration) ([]driver.Handle, string, error) {
	return r.Normalize(ctx, ref, budget)
}

// ResolveIndex resolves plurally and picks the handle at index. Negative
// indexes count from the end.
func (r *Resolver) ResolveIndex(ctx context.Context, ref Referable, index int, budget time.Duration) (driver.Handle, string, error) {
	handles, desc, err := r.Normalize(ctx, ref, budget)
	if err != nil {
		return nil, desc, err
	}
	i := index
	if i < 0 {
		i += len(handles)
	}
	if i < 0 || i >= len(handles) {
		if len(handles) == 0 {
			return nil, desc, r.notFound(ctx, ref.Ref(), desc, budget)
		}
		return nil, desc, &Error{
			Kind:    KindElementNotFound,
			Element: desc,
			Detail:  fmt.Sprintf("index %d out of range, %d element(s) matched", index, len(handles)),
		}
	}
	return handles[i], desc, nil
}

// HostAlive reports whether the alive marker is present on the current page.
func (r *Resolver) HostAlive(ctx context.Context, drv driver.Driver) bool {
	if r.marker.IsZero() {
		return true
	}
	if drv == nil {
		drv = r.drv
	}
	handles, err := drv.Find(ctx, r.marker.By, r.marker.Selector, r.markerBudget)
	return err == nil && len(handles) > 0
}

func (r *Resolver) notFound(ctx context.Context, ref Ref, desc string, budget time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !r.HostAlive(ctx, r.driverFor(ref)) {
		r.logger.Warn("Alive marker missing, host looks unavailable.",
			zap.String("element", desc), zap.String("marker", r.marker.String()))
		return &Error{
			Kind:    KindHostUnavailable,
			Element: desc,
			Detail:  fmt.Sprintf("alive marker %s is absent", r.marker),
		}
	}
	r.logger.Debug("Element not found.", zap.String("element", desc), zap.Duration("budget", budget))
	return &Error{Kind: KindElementNotFound, Element: desc, Timeout: budget}
}

func (r *Resolver) driverFor(ref Ref) driver.Driver {
	if ref.kind == refBound && ref.drv != nil {
		return ref.drv
	}
	return r.drv
}
