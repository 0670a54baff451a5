// internal/scenario/scenario.go
// Package scenario names the browser flows pagekit can run and executes them,
// each in a session of its own.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/pages"
	"github.com/xkilldash9x/pagekit/internal/session"
)

// Func is the body of a scenario. It owns the session for its duration.
type Func func(ctx context.Context, s *session.Session) error

// Scenario is a named flow.
type Scenario struct {
	Name        string
	Description string
	Run         Func
}

// Registry holds scenarios by name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Scenario
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Scenario)}
}

// Register adds sc. Names must be unique and non-empty.
func (r *Registry) Register(sc Scenario) error {
	if sc.Name == "" || sc.Run == nil {
		return fmt.Errorf("scenario needs a name and a body")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[sc.Name]; dup {
		return fmt.Errorf("scenario %q already registered", sc.Name)
	}
	r.byName[sc.Name] = sc
	return nil
}

func (r *Registry) Get(name string) (Scenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sc, ok := r.byName[name]
	return sc, ok
}

// List returns every scenario sorted by name.
func (r *Registry) List() []Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scenario, 0, len(r.byName))
	for _, sc := range r.byName {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Select resolves names in the given order. No names selects everything.
func (r *Registry) Select(names ...string) ([]Scenario, error) {
	if len(names) == 0 {
		return r.List(), nil
	}
	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		out = append(out, sc)
	}
	return out, nil
}

// Demo values of the personal account flow.
const (
	DemoEmail = "someemail@ukr.net"
	DemoNick  = "pagekit"
)

// DemoCheckin is the date the personal account flow picks.
var DemoCheckin = time.Date(2020, time.July, 2, 0, 0, 0, 0, time.UTC)

// Builtin returns a registry with the booking flows.
func Builtin() *Registry {
	r := NewRegistry()
	for _, sc := range []Scenario{
		{
			Name:        "login",
			Description: "Sign in with the configured credentials and land on the home page.",
			Run:         login,
		},
		{
			Name:        "personal-account",
			Description: "Open the personal account, fill the email confirmation and pick a check-in date.",
			Run:         personalAccount,
		},
		{
			Name:        "settings",
			Description: "Edit the nickname and birthday in the account settings and save.",
			Run:         settings,
		},
	} {
		if err := r.Register(sc); err != nil {
			panic(err)
		}
	}
	return r
}

func login(ctx context.Context, s *session.Session) error {
	return pages.NewLoginPage(s).LoginWithSession(ctx)
}

func personalAccount(ctx context.Context, s *session.Session) error {
	page := pages.NewPersonalAccountPage(s)
	if err := page.Open(ctx); err != nil {
		return err
	}
	if err := page.FillEmailConfirm(ctx, DemoEmail); err != nil {
		return err
	}
	email, err := page.ConfirmedEmail(ctx)
	if err != nil {
		return err
	}
	if email != DemoEmail {
		return element.Errorf(element.KindFlowFailed, "", "email confirmation holds '%s', want '%s'", email, DemoEmail)
	}
	if err := page.OpenCheckin(ctx); err != nil {
		return err
	}
	return page.Calendar.SelectDate(ctx, DemoCheckin)
}

func settings(ctx context.Context, s *session.Session) error {
	page := pages.NewSettingsPage(s)
	if err := page.Open(ctx); err != nil {
		return err
	}
	return page.EditPersonalInfo(ctx, pages.PersonalInfo{
		Nickname: DemoNick,
		Day:      "2",
		Month:    "July",
		Year:     "1990",
	})
}
