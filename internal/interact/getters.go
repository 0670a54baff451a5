// internal/interact/getters.go
package interact

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
)

// Text returns the rendered inner text of the element.
func (i *Interactor) Text(ctx context.Context, ref element.Referable) (string, error) {
	return read(ctx, i, ref, func(ctx context.Context, h driver.Handle) (string, error) {
		return h.Text(ctx)
	})
}

// Attribute returns an attribute value, or "" when it is not set. Names are
// matched in lower case.
func (i *Interactor) Attribute(ctx context.Context, ref element.Referable, name string) (string, error) {
	name = strings.ToLower(name)
	return read(ctx, i, ref, func(ctx context.Context, h driver.Handle) (string, error) {
		v, _, err := h.Attribute(ctx, name)
		return v, err
	})
}

// CSSValue returns the computed value of a CSS property.
func (i *Interactor) CSSValue(ctx context.Context, ref element.Referable, property string) (string, error) {
	return read(ctx, i, ref, func(ctx context.Context, h driver.Handle) (string, error) {
		return h.CSSValue(ctx, property)
	})
}

// Location returns the element's layout box.
func (i *Interactor) Location(ctx context.Context, ref element.Referable) (driver.Rect, error) {
	return read(ctx, i, ref, func(ctx context.Context, h driver.Handle) (driver.Rect, error) {
		return h.Rect(ctx)
	})
}

// FirstDisplayed returns the first displayed element among the matches of
// ref.
func (i *Interactor) FirstDisplayed(ctx context.Context, ref element.Referable) (driver.Handle, error) {
	hs, desc, err := i.res.ResolveAll(ctx, ref, i.implicit)
	if err != nil {
		return nil, err
	}
	for _, h := range hs {
		if ok, err := h.IsDisplayed(ctx); err == nil && ok {
			return h, nil
		}
	}
	return nil, &element.Error{Kind: element.KindElementNotVisible, Element: desc, Detail: fmt.Sprintf("none of %d match(es) is displayed", len(hs))}
}

// ByText returns the first match of ref whose text equals text, or contains
// it when exact is false. Matching ignores case.
func (i *Interactor) ByText(ctx context.Context, ref element.Referable, text string, exact bool) (driver.Handle, error) {
	hs, desc, err := i.res.ResolveAll(ctx, ref, i.implicit)
	if err != nil {
		return nil, err
	}
	if h := matchText(ctx, hs, text, exact, false); h != nil {
		return h, nil
	}
	return nil, optionNotFound(text, desc)
}

// matchText scans hs in document order for a case-insensitive text match.
// With visibleOnly set, hidden elements are skipped.
func matchText(ctx context.Context, hs []driver.Handle, text string, exact, visibleOnly bool) driver.Handle {
	want := strings.ToLower(strings.TrimSpace(text))
	for _, h := range hs {
		if visibleOnly {
			if ok, err := h.IsDisplayed(ctx); err != nil || !ok {
				continue
			}
		}
		got, err := h.Text(ctx)
		if err != nil {
			continue
		}
		got = strings.ToLower(strings.TrimSpace(got))
		if (exact && got == want) || (!exact && strings.Contains(got, want)) {
			return h
		}
	}
	return nil
}

func optionNotFound(text, desc string) error {
	return &element.Error{
		Kind:    element.KindOptionNotFound,
		Element: desc,
		Detail:  fmt.Sprintf("no option with text '%s' in %s", text, desc),
	}
}
