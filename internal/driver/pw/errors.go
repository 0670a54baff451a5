// internal/driver/pw/errors.go
package pw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// Playwright error messages that map onto driver error classes. Matching is
// case-insensitive.
var (
	staleMessages = []string{
		"element is not attached to the dom",
		"execution context was destroyed",
		"jshandle is disposed",
		"cannot find context with specified id",
		"node is detached from document",
	}
	notInteractableMessages = []string{
		"element is not visible",
		"element is outside of the viewport",
		"element is not enabled",
		"intercepts pointer events",
		"element is not stable",
		"does not have a layout object",
	}
	noAlertMessages = []string{
		"no dialog is showing",
		"cannot accept dialog which is already handled",
		"cannot dismiss dialog which is already handled",
	}
)

// classify wraps err with the driver error class its message belongs to.
// Target-closed failures count as stale: the page the handle lived in is gone.
func classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, playwright.ErrTargetClosed) {
		return fmt.Errorf("%w: %w", driver.ErrStale, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, staleMessages):
		return fmt.Errorf("%w: %w", driver.ErrStale, err)
	case containsAny(msg, notInteractableMessages):
		return fmt.Errorf("%w: %w", driver.ErrNotInteractable, err)
	case containsAny(msg, noAlertMessages):
		return fmt.Errorf("%w: %w", driver.ErrNoAlert, err)
	}
	return err
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
