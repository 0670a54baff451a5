// internal/driver/pw/errors_test.go
package pw

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"Detached", errors.New("elementHandle.click: Element is not attached to the DOM"), driver.ErrStale},
		{"ContextDestroyed", errors.New("Execution context was destroyed, most likely because of a navigation"), driver.ErrStale},
		{"TargetClosed", fmt.Errorf("click: %w", playwright.ErrTargetClosed), driver.ErrStale},
		{"NotVisible", errors.New("Timeout 1000ms exceeded.\n  - element is not visible"), driver.ErrNotInteractable},
		{"Intercepted", errors.New("<div class=\"mask\"></div> intercepts pointer events"), driver.ErrNotInteractable},
		{"HandledDialog", errors.New("Cannot accept dialog which is already handled!"), driver.ErrNoAlert},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyPassesThrough(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(context.DeadlineExceeded), context.DeadlineExceeded)

	other := errors.New("net::ERR_NAME_NOT_RESOLVED")
	assert.Same(t, other, classify(other))
}

func TestEngineSelector(t *testing.T) {
	s, err := engineSelector(driver.ByCSS, "#save")
	require.NoError(t, err)
	assert.Equal(t, "css=#save", s)

	s, err = engineSelector(driver.ByXPath, "//tr[td='Ada']")
	require.NoError(t, err)
	assert.Equal(t, "xpath=//tr[td='Ada']", s)

	_, err = engineSelector(driver.By(9), "x")
	assert.ErrorIs(t, err, driver.ErrUnsupported)
}

func TestTimeoutClipsToDeadline(t *testing.T) {
	assert.Equal(t, float64(10000), *timeout(context.Background(), 10*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got := *timeout(ctx, 10*time.Second)
	assert.LessOrEqual(t, got, float64(2000))
	assert.Greater(t, got, float64(1000))

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	assert.Equal(t, float64(1), *timeout(expired, time.Second))
}

func TestLaunchOptions(t *testing.T) {
	o := launchOptions("chromium", Options{Headless: true, Args: []string{"--lang=en-US"}})
	assert.Equal(t, append(append([]string{}, defaultArgs...), "--lang=en-US"), o.Args)
	assert.True(t, *o.Headless)

	o = launchOptions("firefox", Options{Args: []string{"-private"}})
	assert.Equal(t, []string{"-private"}, o.Args, "chromium flags are not passed to firefox")

	assert.Equal(t, "chromium", browserName(""))
	assert.Equal(t, "webkit", browserName(" WebKit "))
}

func TestContextOptions(t *testing.T) {
	o := contextOptions(Options{IgnoreTLSErrors: true, ViewportWidth: 1280, ViewportHeight: 720})
	assert.True(t, *o.IgnoreHttpsErrors)
	require.NotNil(t, o.Viewport)
	assert.Equal(t, 720, o.Viewport.Height)

	assert.Nil(t, contextOptions(Options{}).Viewport)
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 720.0, toFloat(720))
	assert.Equal(t, 1.5, toFloat(1.5))
	assert.Equal(t, 0.0, toFloat("x"))
}
