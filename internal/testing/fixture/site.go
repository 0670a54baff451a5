// internal/testing/fixture/site.go
// Package fixture serves a scripted stand-in for the booking site over
// httptest and opens static-driver sessions against it. Page state moves
// forward through links and form posts so flows run without JavaScript.
package fixture

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	DefaultUsername = "ada@example.com"
	DefaultPassword = "s3cret"
	sessionCookie   = "pk_session"
)

// Site is the fake booking application.
type Site struct {
	Server *httptest.Server

	mu       sync.Mutex
	calendar string
	username string
	password string
	failSave string
	public   bool
	saved    []url.Values
	logins   int
}

// NewSite starts the fake site. It stops when the test ends.
func NewSite(t testing.TB) *Site {
	t.Helper()
	s := &Site{
		calendar: "2020-06",
		username: DefaultUsername,
		password: DefaultPassword,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.home)
	mux.HandleFunc("/sign-in/username", s.signInUsername)
	mux.HandleFunc("/sign-in/password", s.signInPassword)
	mux.HandleFunc("/welcome", s.authed(s.welcome))
	mux.HandleFunc("/content", s.authed(s.content))
	mux.HandleFunc("/myaccount", s.authed(s.account))
	mux.HandleFunc("/mysettings", s.authed(s.settings))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// URL is the site root.
func (s *Site) URL() string { return s.Server.URL + "/" }

// FailNextSaves makes settings saves fail with msg shown in the error
// modal. An empty msg restores successful saves.
func (s *Site) FailNextSaves(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = msg
}

// SetCalendarStart sets the month, as YYYY-MM, the check-in calendar opens
// on.
func (s *Site) SetCalendarStart(month string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendar = month
}

// SetPublic lets signed-out visitors reach the account pages.
func (s *Site) SetPublic(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.public = on
}

// Saved returns the settings forms posted so far.
func (s *Site) Saved() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.saved...)
}

// Logins counts successful sign-ins.
func (s *Site) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func (s *Site) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		public := s.public
		s.mu.Unlock()
		if !public && !loggedIn(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h(w, r)
	}
}

func loggedIn(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	return err == nil && c.Value == "1"
}

func page(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>%s</title></head><body>
<div class="main-container"><div id="bodyconstraint-inner">%s</div></div>
</body></html>`, html.EscapeString(title), body)
}

const header = `<header id="top">
  <a id="logo_no_globe_new_logo" href="/">Booking.com</a>
  <a id="profile-menu-trigger--content" href="/?menu=open">Your account</a>
  <a id="current_account" href="/?menu=open">Account</a>
</header>`

const menu = `<ul id="profile-menu">
  <li><a class="profile-menu__item" href="/myaccount">Manage account</a></li>
  <li><a class="profile-menu__item" href="/mysettings">Settings</a></li>
  <li><a class="profile-menu__item" href="/sign-out">Sign out</a></li>
</ul>`

func (s *Site) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !loggedIn(r) {
		page(w, "Sign in", `<div class="account_register_option"><span>Sign in or create an account</span></div>
<form class="transition" action="/sign-in/username" method="post">
  <label for="username">Email address</label>
  <input id="username" name="username" type="email">
  <button type="submit">Continue with email</button>
</form>`)
		return
	}
	body := header
	if r.URL.Query().Get("menu") == "open" {
		body += menu
	}
	body += `<form class="js-ds-layout-events-search-form" action="/search" method="get">
  <input name="ss" placeholder="Where are you going?">
</form>`
	page(w, "Booking.com", body)
}

func (s *Site) signInUsername(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	_ = r.ParseForm()
	passwordForm(w, r.PostForm.Get("username"), "")
}

func passwordForm(w http.ResponseWriter, username, problem string) {
	body := ""
	if problem != "" {
		body = fmt.Sprintf(`<div class="bui-alert--error">%s</div>`, html.EscapeString(problem))
	}
	body += fmt.Sprintf(`<form class="transition" action="/sign-in/password" method="post">
  <input type="hidden" name="username" value="%s">
  <input id="password" name="password" type="password">
  <button type="submit">Sign in</button>
</form>`, html.EscapeString(username))
	page(w, "Enter your password", body)
}

func (s *Site) signInPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	_ = r.ParseForm()
	user, pass := r.PostForm.Get("username"), r.PostForm.Get("password")
	s.mu.Lock()
	ok := user == s.username && pass == s.password
	if ok {
		s.logins++
	}
	s.mu.Unlock()
	if !ok {
		passwordForm(w, user, "The email and password combination you entered doesn't match.")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "1", Path: "/"})
	http.Redirect(w, r, "/welcome", http.StatusSeeOther)
}

func (s *Site) welcome(w http.ResponseWriter, _ *http.Request) {
	page(w, "Welcome", header+`<div class="modal-mask">
  <div class="modal-mask-content">Welcome! What should we call you?</div>
  <a class="modal-mask-closeBtn" href="/content">Close</a>
</div>`)
}

func (s *Site) content(w http.ResponseWriter, _ *http.Request) {
	page(w, "Deals", header+`<article class="content">Deals for the weekend</article>`)
}

func (s *Site) account(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	start := s.calendar
	s.mu.Unlock()
	body := header + `<div class="profile-area__content-container">
  <div class="email-confirm-banner">
    <input class="email-confirm-banner__email-text" name="email" value="">
  </div>
  <a data-mode="checkin" href="/myaccount?calendar=` + url.QueryEscape(start) + `">Check-in date</a>`
	if m := r.URL.Query().Get("calendar"); m != "" {
		cal, err := calendarHTML(m)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body += cal
	}
	page(w, "Your account", body+`</div>`)
}

func calendarHTML(month string) (string, error) {
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="bui-calendar" style="display: block">
  <a class="bui-calendar__control--prev" href="/myaccount?calendar=%s">Previous</a>
  <a class="bui-calendar__control--next" href="/myaccount?calendar=%s">Next</a>
  <table class="bui-calendar__dates"><caption>%s</caption><tr>`,
		first.AddDate(0, -1, 0).Format("2006-01"), first.AddDate(0, 1, 0).Format("2006-01"), first.Format("January 2006"))
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		fmt.Fprintf(&b, `<td class="bui-calendar__date" data-date="%s">%d</td>`, d.Format("2006-01-02"), d.Day())
	}
	b.WriteString(`</tr></table></div>`)
	return b.String(), nil
}

var months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

func (s *Site) settings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		s.mu.Lock()
		s.saved = append(s.saved, r.PostForm)
		fail := s.failSave
		s.mu.Unlock()
		if fail != "" {
			page(w, "Settings", header+fmt.Sprintf(`<div class="bui-modal--error"><p class="bui-modal__text">%s</p></div>`, html.EscapeString(fail)))
			return
		}
		page(w, "Settings", header+`<div class="xwt-success-message">Your changes have been saved</div>`)
		return
	}

	var b strings.Builder
	b.WriteString(header + `<form id="personal-info" action="/mysettings" method="post">
  <input id="nickname" name="nickname" value="">
  <select id="bday" name="bday"><option value="">Day</option>`)
	for d := 1; d <= 31; d++ {
		fmt.Fprintf(&b, `<option value="%d">%d</option>`, d, d)
	}
	b.WriteString(`</select><select id="bmonth" name="bmonth"><option value="">Month</option>`)
	for i, m := range months {
		fmt.Fprintf(&b, `<option value="%d">%s</option>`, i+1, m)
	}
	b.WriteString(`</select><select id="byear" name="byear"><option value="">Year</option>`)
	for y := 2010; y >= 1920; y-- {
		fmt.Fprintf(&b, `<option value="%d">%d</option>`, y, y)
	}
	b.WriteString(`</select><select id="nationality" name="nationality"><option value="">Select your country</option>`)
	for _, c := range []string{"Germany", "Netherlands", "Ukraine", "United Kingdom"} {
		fmt.Fprintf(&b, `<option value="%s">%s</option>`, strings.ToLower(c[:2]), c)
	}
	b.WriteString(`</select>
  <button id="save-settings" type="submit">Save</button>
</form>`)
	page(w, "Settings", b.String())
}
