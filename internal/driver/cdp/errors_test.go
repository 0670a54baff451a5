// internal/driver/cdp/errors_test.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chromedp/cdproto"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"StaleNodeID", &cdproto.Error{Code: -32000, Message: "Could not find node with given id"}, driver.ErrStale},
		{"Detached", errors.New("Node is detached from document"), driver.ErrStale},
		{"NoBoxModel", &cdproto.Error{Code: -32000, Message: "Could not compute box model."}, driver.ErrNotInteractable},
		{"NoLayout", fmt.Errorf("wrapped: %w", errors.New("Node does not have a layout object")), driver.ErrNotInteractable},
		{"NoDialog", &cdproto.Error{Code: -32602, Message: "No dialog is showing"}, driver.ErrNoAlert},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err, "the protocol error stays in the chain")
		})
	}
}

func TestClassifyPassesThrough(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.Same(t, context.Canceled, classify(context.Canceled))

	other := errors.New("Cannot navigate to invalid URL")
	got := classify(other)
	assert.Same(t, other, got)
	assert.False(t, driver.IsStale(got))
	assert.False(t, driver.IsNotInteractable(got))
}

func TestAllocatorOptions(t *testing.T) {
	opts := allocatorOptions(Options{Headless: true, Args: []string{"--lang=en-US", "--mute-audio"}})
	assert.NotEmpty(t, opts)
	assert.Greater(t, len(opts), len(allocatorOptions(Options{})))
}
