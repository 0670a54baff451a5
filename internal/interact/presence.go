// internal/interact/presence.go
package interact

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
)

// IsElementsPresent reports whether ref resolves within timeout. A zero
// timeout uses the configured presence timeout. An absent element, or a
// host that looks unavailable, is reported as false rather than an error.
func (i *Interactor) IsElementsPresent(ctx context.Context, ref element.Referable, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = i.presence
	}
	_, desc, err := i.res.Resolve(ctx, ref, timeout)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, element.KindElementNotFound), errors.Is(err, element.KindHostUnavailable):
		i.logger.Debug("Element not present.", zap.String("element", desc), zap.Duration("timeout", timeout))
		return false, nil
	}
	return false, err
}

// IsDisplayed reports whether the element is displayed. With raise set, a
// missing or hidden element is an error instead of false.
func (i *Interactor) IsDisplayed(ctx context.Context, ref element.Referable, raise bool) (bool, error) {
	shown, err := read(ctx, i, ref, func(ctx context.Context, h driver.Handle) (bool, error) {
		return h.IsDisplayed(ctx)
	})
	if err != nil {
		if !raise && (errors.Is(err, element.KindElementNotFound) || errors.Is(err, element.KindStaleElement)) {
			return false, nil
		}
		return false, err
	}
	if !shown && raise {
		return false, &element.Error{Kind: element.KindElementNotVisible, Element: describe(ref)}
	}
	return shown, nil
}
