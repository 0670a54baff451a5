// internal/interact/mock_test.go
package interact_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/interact"
	"github.com/xkilldash9x/pagekit/internal/mocks"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

// mockSetup wires an Interactor onto a mocked session with no alive check
// and no enabled-wait.
func mockSetup(t *testing.T) (*mocks.MockDriver, *interact.Interactor) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	drv := &mocks.MockDriver{}
	res := element.NewResolver(drv, logger, element.WithAliveMarker(element.Locator{}, 0))
	w := waits.New(res, logger, waits.Config{Timeout: waitTimeout, PollInterval: 20 * time.Millisecond})
	cfg := interact.DefaultConfig()
	cfg.StaleRetryDelay = time.Millisecond
	cfg.PresenceTimeout = 50 * time.Millisecond
	cfg.WaitEnabled = false
	return drv, interact.New(w, logger, cfg)
}

func onFind(drv *mocks.MockDriver, selector string, hs ...driver.Handle) {
	drv.On("Find", mock.Anything, driver.ByCSS, selector, mock.Anything).Return(hs, nil)
}

func TestClickRecoveriesAreCountedPerClass(t *testing.T) {
	tests := []struct {
		name    string
		errs    []error
		wantErr element.Kind
		clicks  int
		scrolls int
	}{
		{
			name:    "StaleThenNotInteractableStillScrolls",
			errs:    []error{driver.ErrStale, driver.ErrNotInteractable, nil},
			clicks:  3,
			scrolls: 1,
		},
		{
			name:    "StaleThenNotInteractableTwice",
			errs:    []error{driver.ErrStale, driver.ErrNotInteractable, driver.ErrNotInteractable},
			wantErr: element.KindElementNotAvailable,
			clicks:  3,
			scrolls: 1,
		},
		{
			name:    "ScrollThenStaleTwice",
			errs:    []error{driver.ErrNotInteractable, driver.ErrStale, driver.ErrStale},
			wantErr: element.KindStaleElement,
			clicks:  3,
			scrolls: 1,
		},
		{
			name:    "StaleTwice",
			errs:    []error{driver.ErrStale, driver.ErrStale},
			wantErr: element.KindStaleElement,
			clicks:  2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			drv, i := mockSetup(t)
			h := &mocks.MockHandle{}
			onFind(drv, "#save", h)
			for _, err := range tc.errs {
				h.On("Click", mock.Anything).Return(err).Once()
			}
			h.On("IsEnabled", mock.Anything).Return(true, nil)
			h.On("ScrollIntoView", mock.Anything).Return(nil)

			err := i.Click(context.Background(), element.CSS("#save"))
			if tc.wantErr == "" {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			h.AssertNumberOfCalls(t, "Click", tc.clicks)
			h.AssertNumberOfCalls(t, "ScrollIntoView", tc.scrolls)
		})
	}
}

func TestHandleErrorModalAfterActionSurfacesReadErrors(t *testing.T) {
	drv, i := mockSetup(t)
	h := &mocks.MockHandle{}
	onFind(drv, "#error-modal", h)
	crashed := errors.New("target crashed")
	h.On("Text", mock.Anything).Return("", crashed)

	present, err := i.HandleErrorModalAfterAction(context.Background(), element.CSS("#error-modal"), "save", 0, true)
	assert.True(t, present)
	assert.ErrorIs(t, err, crashed)
	assert.False(t, errors.Is(err, element.KindFlowFailed))
}

func TestHandleErrorModalAfterActionQuotesModal(t *testing.T) {
	drv, i := mockSetup(t)
	h := &mocks.MockHandle{}
	onFind(drv, "#error-modal", h)
	h.On("Text", mock.Anything).Return("Nickname is already taken", nil)

	present, err := i.HandleErrorModalAfterAction(context.Background(), element.CSS("#error-modal"), "save", 0, true)
	assert.True(t, present)
	assert.ErrorIs(t, err, element.KindFlowFailed)
	assert.ErrorContains(t, err, "Nickname is already taken")
}

func TestAlertsThroughDriver(t *testing.T) {
	ctx := context.Background()

	t.Run("Accept", func(t *testing.T) {
		drv, i := mockSetup(t)
		a := &mocks.MockAlert{}
		drv.On("Alert", mock.Anything).Return(a, nil)
		a.On("Text", mock.Anything).Return("Leave page?", nil)
		a.On("Accept", mock.Anything).Return(nil).Once()

		require.NoError(t, i.AcceptAlert(ctx))
		a.AssertExpectations(t)
		a.AssertNotCalled(t, "Dismiss", mock.Anything)
	})

	t.Run("PromptSendKeysThenAccept", func(t *testing.T) {
		drv, i := mockSetup(t)
		a := &mocks.MockAlert{}
		drv.On("Alert", mock.Anything).Return(a, nil)
		a.On("Text", mock.Anything).Return("Name?", nil)
		a.On("SendKeys", mock.Anything, "Ada").Return(nil).Once()
		a.On("Accept", mock.Anything).Return(nil).Once()

		require.NoError(t, i.AlertSendKeysAndAccept(ctx, "Ada"))
		a.AssertExpectations(t)
	})

	t.Run("DismissFailure", func(t *testing.T) {
		drv, i := mockSetup(t)
		a := &mocks.MockAlert{}
		drv.On("Alert", mock.Anything).Return(a, nil)
		a.On("Text", mock.Anything).Return("", nil)
		gone := errors.New("dialog already handled")
		a.On("Dismiss", mock.Anything).Return(gone)

		err := i.DismissAlert(ctx)
		assert.ErrorIs(t, err, gone)
		assert.ErrorContains(t, err, "alert dismiss failed")
	})

	t.Run("NoAlertTimesOut", func(t *testing.T) {
		drv, i := mockSetup(t)
		drv.On("Alert", mock.Anything).Return(nil, driver.ErrNoAlert)

		_, err := i.Waits().AlertPresent(ctx, waits.WithTimeout(60*time.Millisecond))
		assert.ErrorIs(t, err, element.KindConditionTimeout)

		err = i.AcceptAlert(ctx)
		assert.ErrorIs(t, err, element.KindConditionTimeout)
	})
}
