// internal/waits/engine_test.go
package waits_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagekit/internal/driver/static"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	timeout = 150 * time.Millisecond
	poll    = 20 * time.Millisecond
)

const page = `<html><body><div class="main-container">
<div id="banner" style="display:none">Saved</div>
<button id="save" disabled>Save</button>
<input id="email" value="ada@example.com" class="field pristine">
<p id="status">Loading</p>
<ul id="rows"><li>1</li><li>2</li><li>3</li></ul>
</div></body></html>`

func setup(t *testing.T) (*static.Driver, *waits.Engine) {
	t.Helper()
	d := static.New(zaptest.NewLogger(t))
	require.NoError(t, d.LoadHTML("http://app.test/", page))
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	res := element.NewResolver(d, zaptest.NewLogger(t), element.WithAliveMarker(element.DefaultAliveMarker, 0))
	return d, waits.New(res, zaptest.NewLogger(t), waits.Config{Timeout: timeout, PollInterval: poll})
}

// later applies fn after delay on a background goroutine and waits for it on
// cleanup so no goroutine outlives the test.
func later(t *testing.T, delay time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(delay)
		fn()
	}()
	t.Cleanup(func() { <-done })
}

func TestNeverSatisfiedConditions(t *testing.T) {
	ctx := context.Background()
	_, e := setup(t)

	conditions := map[string]func(opts ...waits.Option) (bool, error){
		"Visible": func(opts ...waits.Option) (bool, error) {
			return e.Visible(ctx, element.CSS("#banner"), opts...)
		},
		"NotVisible": func(opts ...waits.Option) (bool, error) {
			return e.NotVisible(ctx, element.CSS("#status"), opts...)
		},
		"Enabled": func(opts ...waits.Option) (bool, error) {
			return e.Enabled(ctx, element.CSS("#save"), opts...)
		},
		"AttributeContains": func(opts ...waits.Option) (bool, error) {
			return e.AttributeContains(ctx, element.CSS("#email"), "class", "dirty", opts...)
		},
		"AttributeNotContains": func(opts ...waits.Option) (bool, error) {
			return e.AttributeNotContains(ctx, element.CSS("#email"), "", "ada", opts...)
		},
		"TextContains": func(opts ...waits.Option) (bool, error) {
			return e.TextContains(ctx, element.CSS("#status"), "Done", opts...)
		},
		"TextNotContains": func(opts ...waits.Option) (bool, error) {
			return e.TextNotContains(ctx, element.CSS("#status"), "Load", opts...)
		},
		"Count": func(opts ...waits.Option) (bool, error) {
			return e.Count(ctx, element.CSS("#rows li"), 5, false, opts...)
		},
		"AlertPresent": func(opts ...waits.Option) (bool, error) {
			return e.AlertPresent(ctx, opts...)
		},
	}

	for name, wait := range conditions {
		t.Run(name+"/NoRaise", func(t *testing.T) {
			ok, err := wait(waits.Raise(false))
			assert.False(t, ok)
			assert.NoError(t, err)
		})
		t.Run(name+"/Raise", func(t *testing.T) {
			start := time.Now()
			ok, err := wait(waits.Raise(true))
			elapsed := time.Since(start)

			assert.False(t, ok)
			require.Error(t, err)
			assert.NotEmpty(t, element.KindOf(err))
			assert.GreaterOrEqual(t, elapsed, timeout)
			assert.Less(t, elapsed, timeout+poll+100*time.Millisecond)
		})
	}
}

func TestConditionSpecificKinds(t *testing.T) {
	ctx := context.Background()
	_, e := setup(t)

	_, err := e.Visible(ctx, element.CSS("#banner"))
	assert.ErrorIs(t, err, element.KindElementNotVisible)

	_, err = e.Visible(ctx, element.CSS("#ghost"))
	assert.ErrorIs(t, err, element.KindElementNotFound)

	_, err = e.Enabled(ctx, element.CSS("#save"))
	assert.ErrorIs(t, err, element.KindElementDisabled)

	_, err = e.TextContains(ctx, element.CSS("#status"), "Done")
	assert.ErrorIs(t, err, element.KindConditionTimeout)
	assert.Contains(t, err.Error(), `last observed "Loading"`)

	_, err = e.NotVisible(ctx, element.CSS("#status"), waits.Raise(true))
	assert.ErrorIs(t, err, element.KindConditionTimeout)
}

func TestVisibleHostUnavailable(t *testing.T) {
	ctx := context.Background()
	d, e := setup(t)
	require.NoError(t, d.Remove(".main-container"))

	_, err := e.Visible(ctx, element.CSS("#banner"))
	assert.ErrorIs(t, err, element.KindHostUnavailable)
}

func TestNotVisibleDefaultsToNoRaise(t *testing.T) {
	_, e := setup(t)
	ok, err := e.NotVisible(context.Background(), element.CSS("#status"))
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestNotVisibleAbsenceSatisfies(t *testing.T) {
	_, e := setup(t)
	ok, err := e.NotVisible(context.Background(), element.CSS("#ghost"), waits.Raise(true))
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestSatisfiedLater(t *testing.T) {
	ctx := context.Background()
	d, e := setup(t)

	later(t, 40*time.Millisecond, func() { _ = d.RemoveAttribute("#banner", "style") })
	ok, err := e.Visible(ctx, element.CSS("#banner"))
	require.NoError(t, err)
	assert.True(t, ok)

	later(t, 40*time.Millisecond, func() { _ = d.SetText("#status", "Done") })
	ok, err = e.TextContains(ctx, element.CSS("#status"), "Done")
	require.NoError(t, err)
	assert.True(t, ok)

	later(t, 40*time.Millisecond, func() { _ = d.RemoveAttribute("#save", "disabled") })
	ok, err = e.Enabled(ctx, element.CSS("#save"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSurvivesRerender(t *testing.T) {
	ctx := context.Background()
	d, e := setup(t)

	// Re-rendering between cycles must not break the wait since each cycle
	// resolves afresh.
	later(t, 10*time.Millisecond, func() { _ = d.Rerender("#status") })
	later(t, 60*time.Millisecond, func() { _ = d.SetText("#status", "Done") })
	ok, err := e.TextContains(ctx, element.CSS("#status"), "Done", waits.WithTimeout(time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCountPrecise(t *testing.T) {
	ctx := context.Background()
	d, e := setup(t)
	rows := element.CSS("#rows li")

	ok, err := e.Count(ctx, rows, 3, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Count(ctx, rows, 2, true, waits.Raise(false))
	require.NoError(t, err)
	assert.False(t, ok, "3 rows must not satisfy exactly 2")

	ok, err = e.Count(ctx, rows, 2, false)
	require.NoError(t, err)
	assert.True(t, ok, "3 rows satisfy at least 2")

	require.NoError(t, d.Append("#rows", "<li>4</li>"))
	ok, err = e.Count(ctx, rows, 3, true, waits.Raise(false))
	require.NoError(t, err)
	assert.False(t, ok, "4 rows must not satisfy exactly 3")
}

func TestAlertPresent(t *testing.T) {
	d, e := setup(t)
	later(t, 30*time.Millisecond, func() { d.OpenDialog("Leave page?") })
	ok, err := e.AlertPresent(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUntil(t *testing.T) {
	_, e := setup(t)
	calls := 0
	ok, err := e.Until(context.Background(), "third call", func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestContextCancellation(t *testing.T) {
	_, e := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	ok, err := e.Visible(ctx, element.CSS("#banner"), waits.WithTimeout(5*time.Second))
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvalidReferenceFailsFast(t *testing.T) {
	_, e := setup(t)
	start := time.Now()
	_, err := e.Visible(context.Background(), element.Ref{}, waits.WithTimeout(5*time.Second))
	assert.ErrorIs(t, err, element.KindInvalidElementReference)
	assert.Less(t, time.Since(start), time.Second)
}
