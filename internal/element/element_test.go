// internal/element/element_test.go
package element

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagekit/internal/driver"
	"github.com/xkilldash9x/pagekit/internal/mocks"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		want     driver.By
		wantErr  bool
	}{
		{"UpperCSS", "CSS_SELECTOR", driver.ByCSS, false},
		{"LowerCSS", "css", driver.ByCSS, false},
		{"Empty", "", driver.ByCSS, false},
		{"XPath", "XPATH", driver.ByXPath, false},
		{"ByXPath", "by_xpath", driver.ByXPath, false},
		{"Unknown", "link_text", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := ParseLocator(tt.strategy, ".x")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, KindInvalidElementReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.By)
			assert.Equal(t, ".x", l.Selector)
		})
	}
}

func TestLocatorFormat(t *testing.T) {
	l := CSS("td[data-date='%s']").Format("2020-07-02")
	assert.Equal(t, "td[data-date='2020-07-02']", l.Selector)
	assert.Equal(t, `("CSS_SELECTOR", "td[data-date='2020-07-02']")`, l.String())
}

func TestRefVariants(t *testing.T) {
	h := &mocks.MockHandle{}
	drv := &mocks.MockDriver{}

	t.Run("Locator", func(t *testing.T) {
		r := CSS("#a").Ref()
		assert.True(t, r.Valid())
		assert.True(t, r.Resolvable())
		l, ok := r.Locator()
		assert.True(t, ok)
		assert.Equal(t, "#a", l.Selector)
	})

	t.Run("Handle", func(t *testing.T) {
		r := Handle(h, "the button")
		assert.True(t, r.Valid())
		assert.False(t, r.Resolvable())
		assert.Equal(t, "the button", r.Describe())
	})

	t.Run("Bound", func(t *testing.T) {
		r := Bind(drv, XPath("//a"))
		assert.True(t, r.Valid())
		assert.True(t, r.Resolvable())
	})

	t.Run("Invalid", func(t *testing.T) {
		assert.False(t, Ref{}.Valid())
		assert.False(t, Handle(nil, "x").Valid())
		assert.False(t, Handles([]driver.Handle{h, nil}, "x").Valid())
		assert.False(t, Of(Locator{}).Valid())
		assert.False(t, Bind(nil, CSS("#a")).Valid())
	})
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("click failed: %w", &Error{Kind: KindStaleElement, Element: "#a", Err: cause})

	assert.ErrorIs(t, err, KindStaleElement)
	assert.NotErrorIs(t, err, KindElementNotFound)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStaleElement, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(cause))
	assert.Equal(t, KindFlowFailed, KindOf(fmt.Errorf("wrapped: %w", KindFlowFailed)))

	msg := (&Error{Kind: KindConditionTimeout, Condition: "text contains 'x'", Element: "#b"}).Error()
	assert.Equal(t, "condition timeout waiting for text contains 'x': #b", msg)
}
