// internal/driver/cdp/errors.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// Protocol error messages that map onto driver error classes.
var (
	staleMessages = []string{
		"Could not find node with given id",
		"No node with given id found",
		"Node is detached from document",
		"Cannot find context with specified id",
		"node not found",
	}
	notInteractableMessages = []string{
		"Could not compute box model",
		"Node does not have a layout object",
		"node is not interactable",
	}
	noAlertMessages = []string{
		"No dialog is showing",
	}
)

// classify wraps err with the driver error class its message belongs to.
func classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := err.Error()
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
