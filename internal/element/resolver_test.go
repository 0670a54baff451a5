// internal/element/resolver_test.go
package element_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/driver/static"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/mocks"
)

const page = `<html><body><div class="main-container">
<a class="link">first</a><a class="link">second</a></div></body></html>`

const deadPage = `<html><body><h1>502 Bad Gateway</h1></body></html>`

func setup(t *testing.T, src string) (*static.Driver, *element.Resolver) {
	t.Helper()
	d := static.New(zaptest.NewLogger(t))
	require.NoError(t, d.LoadHTML("http://app.test/", src))
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	r := element.NewResolver(d, zaptest.NewLogger(t), element.WithAliveMarker(element.DefaultAliveMarker, 50*time.Millisecond))
	return d, r
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	_, r := setup(t, page)

	h, desc, err := r.Resolve(ctx, element.CSS("a.link"), 0)
	require.NoError(t, err)
	assert.Equal(t, `("CSS_SELECTOR", "a.link")`, desc)
	txt, _ := h.Text(ctx)
	assert.Equal(t, "first", txt)

	hs, _, err := r.ResolveAll(ctx, element.XPath("//a"), 0)
	require.NoError(t, err)
	assert.Len(t, hs, 2)

	last, _, err := r.ResolveIndex(ctx, element.CSS("a.link"), -1, 0)
	require.NoError(t, err)
	txt, _ = last.Text(ctx)
	assert.Equal(t, "second", txt)

	_, _, err = r.ResolveIndex(ctx, element.CSS("a.link"), 5, 0)
	assert.ErrorIs(t, err, element.KindElementNotFound)
}

func TestResolveAllEmptyIsNotAnError(t *testing.T) {
	_, r := setup(t, page)
	hs, _, err := r.ResolveAll(context.Background(), element.CSS("#none"), 0)
	require.NoError(t, err)
	assert.Empty(t, hs)
}

func TestResolveNotFoundAfterBudget(t *testing.T) {
	_, r := setup(t, page)
	budget := 120 * time.Millisecond

	start := time.Now()
	_, _, err := r.Resolve(context.Background(), element.CSS("#none"), budget)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, element.KindElementNotFound)
	assert.GreaterOrEqual(t, elapsed, budget)
	assert.Less(t, elapsed, budget+500*time.Millisecond)
}

func TestResolveHostUnavailable(t *testing.T) {
	_, r := setup(t, deadPage)

	_, _, err := r.Resolve(context.Background(), element.CSS("#none"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, element.KindHostUnavailable)
	assert.NotErrorIs(t, err, element.KindElementNotFound)
}

func TestResolveInvalidReference(t *testing.T) {
	_, r := setup(t, page)
	ctx := context.Background()

	_, _, err := r.Resolve(ctx, element.Ref{}, 0)
	assert.ErrorIs(t, err, element.KindInvalidElementReference)

	_, _, err = r.Resolve(ctx, nil, 0)
	assert.ErrorIs(t, err, element.KindInvalidElementReference)

	_, _, err = r.Resolve(ctx, element.Handle(nil, "nothing"), 0)
	assert.ErrorIs(t, err, element.KindInvalidElementReference)
}

func TestResolveHandleRefSkipsQuery(t *testing.T) {
	drv := &mocks.MockDriver{}
	h := &mocks.MockHandle{}
	r := element.NewResolver(drv, zap.NewNop())

	got, desc, err := r.Resolve(context.Background(), element.Handle(h, "cached"), time.Second)
	require.NoError(t, err)
	assert.Same(t, h, got)
	assert.Equal(t, "cached", desc)
	drv.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolvePassesBudgetExplicitly(t *testing.T) {
	drv := &mocks.MockDriver{}
	h := &mocks.MockHandle{}
	drv.On("Find", mock.Anything, driver.ByXPath, "//x", 3*time.Second).Return([]driver.Handle{h}, nil).Once()

	r := element.NewResolver(drv, zap.NewNop())
	_, _, err := r.Resolve(context.Background(), element.XPath("//x"), 3*time.Second)
	require.NoError(t, err)
	drv.AssertExpectations(t)
}

func TestResolveBoundUsesItsOwnSession(t *testing.T) {
	own := &mocks.MockDriver{}
	other := &mocks.MockDriver{}
	h := &mocks.MockHandle{}
	other.On("Find", mock.Anything, driver.ByCSS, "#x", time.Duration(0)).Return([]driver.Handle{h}, nil)

	r := element.NewResolver(own, zap.NewNop())
	got, _, err := r.Resolve(context.Background(), element.Bind(other, element.CSS("#x")), 0)
	require.NoError(t, err)
	assert.Same(t, h, got)
	own.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveQueryError(t *testing.T) {
	drv := &mocks.MockDriver{}
	boom := errors.New("invalid selector")
	drv.On("Find", mock.Anything, driver.ByCSS, "[", time.Duration(0)).Return(nil, boom)

	r := element.NewResolver(drv, zap.NewNop())
	_, _, err := r.Resolve(context.Background(), element.CSS("["), 0)
	assert.ErrorIs(t, err, boom)
}

func TestResolveLogsHostUnavailable(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := static.New(zap.NewNop())
	require.NoError(t, d.LoadHTML("http://app.test/", deadPage))
	r := element.NewResolver(d, zap.New(core), element.WithAliveMarker(element.CSS(".main-container"), 0))

	_, _, err := r.Resolve(context.Background(), element.CSS("#none"), 0)
	require.Error(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, `("CSS_SELECTOR", "#none")`, logs.All()[0].ContextMap()["element"])
}

func TestResolveAliveCheckDisabled(t *testing.T) {
	d := static.New(zap.NewNop())
	require.NoError(t, d.LoadHTML("http://app.test/", deadPage))
	r := element.NewResolver(d, zap.NewNop(), element.WithAliveMarker(element.Locator{}, 0))

	_, _, err := r.Resolve(context.Background(), element.CSS("#none"), 0)
	assert.ErrorIs(t, err, element.KindElementNotFound)
}
