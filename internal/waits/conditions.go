// internal/waits/conditions.go
package waits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
)

// DefaultAttribute is the attribute inspected when none is named.
const DefaultAttribute = "value"

// Visible waits until the first element matching ref is displayed. On
// timeout it fails with ElementNotVisible, or with ElementNotFound (or
// HostUnavailable) when the element never resolved at all.
func (e *Engine) Visible(ctx context.Context, ref element.Referable, opts ...Option) (bool, error) {
	desc := describe(ref)
	o := e.options(true, opts)
	return e.until(ctx, "visible", desc, o,
		func(ctx context.Context) (observation, error) {
			return e.first(ctx, ref, func(h driver.Handle) (bool, string, error) {
				ok, err := h.IsDisplayed(ctx)
				return ok, strconv.FormatBool(ok), err
			})
		},
		func(ctx context.Context, last observation, o Options) error {
			if !last.found {
				return e.notFound(ctx, desc, o)
			}
			return &element.Error{Kind: element.KindElementNotVisible, Element: desc, Condition: "visible", Timeout: o.Timeout}
		})
}

// NotVisible waits until ref is absent or hidden. Absence satisfies the
// condition. It does not raise unless Raise(true) is passed.
func (e *Engine) NotVisible(ctx context.Context, ref element.Referable, opts ...Option) (bool, error) {
	o := e.options(false, opts)
	return e.until(ctx, "not visible", describe(ref), o,
		func(ctx context.Context) (observation, error) {
			hs, err := e.lookup(ctx, ref)
			if err != nil {
				return observation{}, err
			}
			if len(hs) == 0 {
				return observation{ok: true, value: "absent"}, nil
			}
			shown, err := hs[0].IsDisplayed(ctx)
			if err != nil {
				if driver.IsStale(err) {
					return observation{ok: true, value: "stale"}, nil
				}
				return observation{}, err
			}
			return observation{ok: !shown, found: true, value: strconv.FormatBool(shown)}, nil
		},
		timeoutErr("not visible"))
}

// Enabled waits until the first element matching ref is enabled, failing
// with ElementDisabled on timeout.
func (e *Engine) Enabled(ctx context.Context, ref element.Referable, opts ...Option) (bool, error) {
	desc := describe(ref)
	o := e.options(true, opts)
	return e.until(ctx, "enabled", desc, o,
		func(ctx context.Context) (observation, error) {
			return e.first(ctx, ref, func(h driver.Handle) (bool, string, error) {
				ok, err := h.IsEnabled(ctx)
				return ok, strconv.FormatBool(ok), err
			})
		},
		func(ctx context.Context, last observation, o Options) error {
			if !last.found {
				return e.notFound(ctx, desc, o)
			}
			return &element.Error{Kind: element.KindElementDisabled, Element: desc, Condition: "enabled", Timeout: o.Timeout}
		})
}

// AttributeContains waits until attr of the first match contains text. An
// empty attr means the value attribute.
func (e *Engine) AttributeContains(ctx context.Context, ref element.Referable, attr, text string, opts ...Option) (bool, error) {
	return e.attribute(ctx, ref, attr, text, true, opts)
}

// AttributeNotContains waits until attr of the first match no longer
// contains text. A missing attribute counts as not containing it.
func (e *Engine) AttributeNotContains(ctx context.Context, ref element.Referable, attr, text string, opts ...Option) (bool, error) {
	return e.attribute(ctx, ref, attr, text, false, opts)
}

func (e *Engine) attribute(ctx context.Context, ref element.Referable, attr, text string, want bool, opts []Option) (bool, error) {
	if attr == "" {
		attr = DefaultAttribute
	}
	verb := "contains"
	if !want {
		verb = "does not contain"
	}
	cond := fmt.Sprintf("attribute %s %s %q", attr, verb, text)
	return e.until(ctx, cond, describe(ref), e.options(true, opts),
		func(ctx context.Context) (observation, error) {
			return e.first(ctx, ref, func(h driver.Handle) (bool, string, error) {
				v, present, err := h.Attribute(ctx, attr)
				if err != nil {
					return false, "", err
				}
				has := present && strings.Contains(v, text)
				return has == want, v, nil
			})
		},
		timeoutErr(cond))
}

// TextContains waits until the inner text of the first match contains text.
func (e *Engine) TextContains(ctx context.Context, ref element.Referable, text string, opts ...Option) (bool, error) {
	return e.text(ctx, ref, text, true, opts)
}

// TextNotContains waits until the inner text of the first match no longer
// contains text.
func (e *Engine) TextNotContains(ctx context.Context, ref element.Referable, text string, opts ...Option) (bool, error) {
	return e.text(ctx, ref, text, false, opts)
}

func (e *Engine) text(ctx context.Context, ref element.Referable, text string, want bool, opts []Option) (bool, error) {
	verb := "contains"
	if !want {
		verb = "does not contain"
	}
	cond := fmt.Sprintf("text %s %q", verb, text)
	return e.until(ctx, cond, describe(ref), e.options(true, opts),
		func(ctx context.Context) (observation, error) {
			return e.first(ctx, ref, func(h driver.Handle) (bool, string, error) {
				got, err := h.Text(ctx)
				if err != nil {
					return false, "", err
				}
				return strings.Contains(got, text) == want, got, nil
			})
		},
		timeoutErr(cond))
}

// Count waits until at least n elements match ref, or exactly n when precise
// is set.
func (e *Engine) Count(ctx context.Context, ref element.Referable, n int, precise bool, opts ...Option) (bool, error) {
	cond := fmt.Sprintf("at least %d element(s)", n)
	if precise {
		cond = fmt.Sprintf("exactly %d element(s)", n)
	}
	return e.until(ctx, cond, describe(ref), e.options(true, opts),
		func(ctx context.Context) (observation, error) {
			hs, err := e.lookup(ctx, ref)
			if err != nil {
				return observation{}, err
			}
			got := len(hs)
			ok := got >= n
			if precise {
				ok = got == n
			}
			return observation{ok: ok, found: got > 0, value: strconv.Itoa(got)}, nil
		},
		timeoutErr(cond))
}

// AlertPresent waits until a native dialog is open.
func (e *Engine) AlertPresent(ctx context.Context, opts ...Option) (bool, error) {
	return e.until(ctx, "alert present", "<alert>", e.options(true, opts),
		func(ctx context.Context) (observation, error) {
			_, err := e.res.Driver().Alert(ctx)
			switch {
			case err == nil:
				return observation{ok: true, found: true}, nil
			case errors.Is(err, driver.ErrNoAlert):
				return observation{value: "no alert"}, nil
			default:
				return observation{}, err
			}
		},
		timeoutErr("alert present"))
}

// Until polls an arbitrary predicate with the engine's timing rules. On
// timeout it fails with ConditionTimeout naming cond.
func (e *Engine) Until(ctx context.Context, cond string, fn func(ctx context.Context) (bool, error), opts ...Option) (bool, error) {
	return e.until(ctx, cond, "", e.options(true, opts),
		func(ctx context.Context) (observation, error) {
			ok, err := fn(ctx)
			if err != nil && driver.IsStale(err) {
				return observation{value: "stale"}, nil
			}
			return observation{ok: ok}, err
		},
		timeoutErr(cond))
}
