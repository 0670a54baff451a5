// internal/driver/static/driver_test.go
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

const fixture = `<html><head><title>Fixture</title></head><body>
<div class="main-container">
  <ul id="list"><li class="item">One</li><li class="item" style="display: none">Two</li><li class="item">Three</li></ul>
  <input id="name" value="abc">
  <input id="locked" disabled>
  <input id="agree" type="checkbox">
  <input type="radio" name="r" id="r1" checked><input type="radio" name="r" id="r2">
  <select id="country"><option>France</option><option selected>Spain</option></select>
  <button id="far" data-offscreen data-rect="0,1500,80,20">Far</button>
  <div id="src">drag</div><div id="dst"></div>
  <p id="styled" style="color: red; width: 10px">styled</p>
</div>
</body></html>`

func newFixture(t *testing.T) *Driver {
	t.Helper()
	d := New(zaptest.NewLogger(t))
	require.NoError(t, d.LoadHTML("http://app.test/", fixture))
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return d
}

func one(t *testing.T, d *Driver, by driver.By, sel string) driver.Handle {
	t.Helper()
	hs, err := d.Find(context.Background(), by, sel, 0)
	require.NoError(t, err)
	require.NotEmpty(t, hs, "no match for %s", sel)
	return hs[0]
}

func TestFind(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()

	t.Run("CSS", func(t *testing.T) {
		hs, err := d.Find(ctx, driver.ByCSS, "li.item", 0)
		require.NoError(t, err)
		assert.Len(t, hs, 3)
	})

	t.Run("XPath", func(t *testing.T) {
		hs, err := d.Find(ctx, driver.ByXPath, "//li[contains(., 'Three')]", 0)
		require.NoError(t, err)
		require.Len(t, hs, 1)
		txt, err := hs[0].Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Three", txt)
	})

	t.Run("InvalidSelector", func(t *testing.T) {
		_, err := d.Find(ctx, driver.ByCSS, "li[", 0)
		assert.Error(t, err)
		_, err = d.Find(ctx, driver.ByXPath, "//li[", 0)
		assert.Error(t, err)
	})

	t.Run("EmptyAfterBudget", func(t *testing.T) {
		start := time.Now()
		hs, err := d.Find(ctx, driver.ByCSS, "#missing", 60*time.Millisecond)
		require.NoError(t, err)
		assert.Empty(t, hs)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("AppearsWithinBudget", func(t *testing.T) {
		go func() {
			time.Sleep(30 * time.Millisecond)
			_ = d.Append("#list", `<li id="late">Late</li>`)
		}()
		hs, err := d.Find(ctx, driver.ByCSS, "#late", time.Second)
		require.NoError(t, err)
		assert.Len(t, hs, 1)
	})

	t.Run("ChildFind", func(t *testing.T) {
		list := one(t, d, driver.ByCSS, "#list")
		hs, err := list.Find(ctx, driver.ByCSS, "li")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(hs), 3)
	})
}

const usersTable = `<html><body><table id="users">
<tr><td>Ada</td><td><input id="ada" type="checkbox"></td></tr>
<tr><td><span>Cy Young</span></td><td><input id="cy" type="checkbox"></td></tr>
</table></body></html>`

func TestFindTableRowXPath(t *testing.T) {
	d := New(zaptest.NewLogger(t))
	require.NoError(t, d.LoadHTML("http://app.test/", usersTable))
	ctx := context.Background()

	tests := []struct {
		name, xpath, want string
	}{
		{"CellPredicate", "//table[@id='users']//tr[td[normalize-space()='Ada']]//input[@type='checkbox']", "ada"},
		{"DescendantText", "//table[@id='users']//tr[.//*[normalize-space(text())='Cy Young']]//input[@type='checkbox']", "cy"},
		{"ContainsText", "//table[@id='users']//tr[.//*[contains(text(), 'Young')]]//input[@type='checkbox']", "cy"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hs, err := d.Find(ctx, driver.ByXPath, tc.xpath, 0)
			require.NoError(t, err)
			require.Len(t, hs, 1)
			id, _, err := hs[0].Attribute(ctx, "id")
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestQueryPanicBecomesError(t *testing.T) {
	_, err := query(nil, driver.ByCSS, "li")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query 'li' failed")

	d := newFixture(t)
	var doc *html.Node
	d.locked(func() {
		doc = d.win().doc
		d.win().doc = nil
	})
	_, err = d.Find(context.Background(), driver.ByCSS, "li", 0)
	require.Error(t, err)

	// The session lock must be free again after the failed query.
	released := make(chan struct{})
	go func() {
		d.locked(func() { d.win().doc = doc })
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("session lock still held after a failed query")
	}
	hs, err := d.Find(context.Background(), driver.ByCSS, "li.item", 0)
	require.NoError(t, err)
	assert.Len(t, hs, 3)
}

func TestHandleState(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()

	hidden := one(t, d, driver.ByXPath, "//li[2]")
	shown, err := hidden.IsDisplayed(ctx)
	require.NoError(t, err)
	assert.False(t, shown)
	txt, err := hidden.Text(ctx)
	require.NoError(t, err)
	assert.Empty(t, txt, "hidden elements expose no text")

	locked := one(t, d, driver.ByCSS, "#locked")
	en, err := locked.IsEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, en)

	v, ok, err := one(t, d, driver.ByCSS, "#name").Attribute(ctx, "VALUE")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	color, err := one(t, d, driver.ByCSS, "#styled").CSSValue(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, "red", color)

	r, err := one(t, d, driver.ByCSS, "#far").Rect(ctx)
	require.NoError(t, err)
	assert.Equal(t, driver.Rect{X: 0, Y: 1500, Width: 80, Height: 20}, r)
}

func TestStaleness(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()

	h := one(t, d, driver.ByCSS, "#name")
	require.NoError(t, d.Rerender("#name"))

	err := h.Click(ctx)
	assert.ErrorIs(t, err, driver.ErrStale)
	_, err = h.IsDisplayed(ctx)
	assert.ErrorIs(t, err, driver.ErrStale)

	fresh := one(t, d, driver.ByCSS, "#name")
	assert.NoError(t, fresh.Click(ctx))
}

func TestInput(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()
	name := one(t, d, driver.ByCSS, "#name")

	require.NoError(t, name.SendKeys(ctx, "def"))
	v, _, _ := name.Attribute(ctx, "value")
	assert.Equal(t, "abcdef", v)

	require.NoError(t, name.Clear(ctx))
	v, _, _ = name.Attribute(ctx, "value")
	assert.Empty(t, v)

	err := one(t, d, driver.ByCSS, "#locked").SendKeys(ctx, "x")
	assert.ErrorIs(t, err, driver.ErrNotInteractable)

	err = one(t, d, driver.ByCSS, "#styled").SendKeys(ctx, "x")
	assert.ErrorIs(t, err, driver.ErrNotInteractable)
}

func TestClickDefaults(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()

	agree := one(t, d, driver.ByCSS, "#agree")
	require.NoError(t, agree.Click(ctx))
	sel, _ := agree.IsSelected(ctx)
	assert.True(t, sel)
	require.NoError(t, agree.Click(ctx))
	sel, _ = agree.IsSelected(ctx)
	assert.False(t, sel)

	require.NoError(t, one(t, d, driver.ByCSS, "#r2").Click(ctx))
	r1, _ := one(t, d, driver.ByCSS, "#r1").IsSelected(ctx)
	r2, _ := one(t, d, driver.ByCSS, "#r2").IsSelected(ctx)
	assert.False(t, r1)
	assert.True(t, r2)

	far := one(t, d, driver.ByCSS, "#far")
	assert.ErrorIs(t, far.Click(ctx), driver.ErrNotInteractable)
	require.NoError(t, far.ScrollIntoView(ctx))
	assert.NoError(t, far.Click(ctx))
	_, y := d.ScrollPosition()
	assert.Equal(t, 1500.0, y)

	assert.ErrorIs(t, one(t, d, driver.ByCSS, "#locked").Click(ctx), driver.ErrNotInteractable)
	assert.Equal(t, 6, d.CountActions("click"))
}

func TestSelectByText(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()
	country := one(t, d, driver.ByCSS, "#country")

	require.NoError(t, country.SelectByText(ctx, "France"))
	v, _, _ := country.Attribute(ctx, "value")
	assert.Equal(t, "France", v)

	assert.ErrorIs(t, country.SelectByText(ctx, "Peru"), driver.ErrNoOption)
}

func TestDragAndDrop(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()
	src := one(t, d, driver.ByCSS, "#src")
	dst := one(t, d, driver.ByCSS, "#dst")

	require.NoError(t, d.DragAndDrop(ctx, src, dst))
	moved, err := d.Find(ctx, driver.ByCSS, "#dst > #src", 0)
	require.NoError(t, err)
	assert.Len(t, moved, 1)
}

func TestHooks(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()
	boom := fmt.Errorf("blocked")
	d.OnAction(func(_ context.Context, _ *Driver, a Action) error {
		if a.Name == "clear" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, one(t, d, driver.ByCSS, "#name").Clear(ctx), boom)
}

func TestDialogs(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()

	_, err := d.Alert(ctx)
	assert.ErrorIs(t, err, driver.ErrNoAlert)

	dlg := d.OpenDialog("Are you sure?")
	a, err := d.Alert(ctx)
	require.NoError(t, err)
	msg, _ := a.Text(ctx)
	assert.Equal(t, "Are you sure?", msg)
	require.NoError(t, a.SendKeys(ctx, "yes"))
	require.NoError(t, a.Accept(ctx))

	closed, accepted, input := dlg.Result()
	assert.True(t, closed)
	assert.True(t, accepted)
	assert.Equal(t, "yes", input)

	_, err = d.Alert(ctx)
	assert.ErrorIs(t, err, driver.ErrNoAlert)
}

func TestWindows(t *testing.T) {
	d := newFixture(t)
	ctx := context.Background()

	id, err := d.OpenWindow("http://app.test/popup", `<html><body><h1 id="popup">Popup</h1></body></html>`)
	require.NoError(t, err)
	ids, _ := d.Windows(ctx)
	require.Len(t, ids, 2)
	assert.Equal(t, id, ids[1])

	require.NoError(t, d.SwitchWindow(ctx, id))
	u, _ := d.CurrentURL(ctx)
	assert.Equal(t, "http://app.test/popup", u)
	assert.ErrorIs(t, d.SwitchWindow(ctx, "nope"), driver.ErrNoWindow)
}

func TestNavigateAndSubmit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><form method="post" action="/login">
			<input name="user" id="user"><button id="go" type="submit">Go</button></form>
			<a id="old" href="/old">old</a></body></html>`)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1 id="hello">Hello %s</h1></body></html>`, r.PostForm.Get("user"))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body><p id="new">new</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	d := New(zaptest.NewLogger(t), WithHTTPClient(srv.Client()))
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	ctx := context.Background()

	// A caller-supplied client follows redirects itself; the final URL is
	// still taken from the response.
	require.NoError(t, d.Navigate(ctx, srv.URL+"/"))
	require.NoError(t, one(t, d, driver.ByCSS, "#user").SendKeys(ctx, "ada"))
	require.NoError(t, one(t, d, driver.ByCSS, "#go").Click(ctx))
	hello, err := one(t, d, driver.ByCSS, "#hello").Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello ada", hello)

	require.NoError(t, d.Navigate(ctx, "/"))
	require.NoError(t, one(t, d, driver.ByCSS, "#old").Click(ctx))
	u, _ := d.CurrentURL(ctx)
	assert.Equal(t, srv.URL+"/new", u)

	require.NoError(t, d.Refresh(ctx))
	assert.NotNil(t, d.Lookup("#new"))
}
