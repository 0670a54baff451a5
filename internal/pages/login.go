// internal/pages/login.go
package pages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/session"
	"github.com/xkilldash9x/pagekit/internal/waits"
)

var (
	loginMainForm      = element.CSS("#bodyconstraint-inner")
	loginEnterAccount  = element.CSS(".account_register_option span")
	loginEmailInput    = element.CSS(`input[id="username"]`)
	loginNextButton    = element.CSS(`.transition button[type="submit"]`)
	loginPasswordInput = element.CSS("input#password")
	loginSubmitButton  = element.CSS(`button[type="submit"]`)
	loginProfileButton = element.CSS(`[id="profile-menu-trigger--content"]`)
	loginWelcomeClose  = element.CSS(".modal-mask-closeBtn")
	loginHomeLogo      = element.CSS("#top #logo_no_globe_new_logo")
	loginSearchForm    = element.CSS(".js-ds-layout-events-search-form")
)

// LoginPage is the sign-in flow at the site root.
type LoginPage struct {
	Base
}

// NewLoginPage builds the login page for s.
func NewLoginPage(s *session.Session, opts ...Option) *LoginPage {
	return &LoginPage{Base: NewBase(s, "Login", "", []element.Referable{loginMainForm}, opts...)}
}

// ClickEnterInAccount opens the sign-in form when the landing page offers
// an account entry point.
func (p *LoginPage) ClickEnterInAccount(ctx context.Context) error {
	shown, err := p.act.IsDisplayed(ctx, loginEnterAccount, false)
	if err != nil || !shown {
		return err
	}
	return p.act.Click(ctx, loginEnterAccount)
}

func (p *LoginPage) FillEmail(ctx context.Context, email string) error {
	if _, err := p.waits.Visible(ctx, loginEmailInput); err != nil {
		return err
	}
	return p.act.SendKeys(ctx, loginEmailInput, email)
}

func (p *LoginPage) ClickNext(ctx context.Context) error {
	if _, err := p.waits.Visible(ctx, loginNextButton); err != nil {
		return err
	}
	return p.act.Click(ctx, loginNextButton)
}

func (p *LoginPage) FillPassword(ctx context.Context, password string) error {
	if _, err := p.waits.Visible(ctx, loginPasswordInput); err != nil {
		return err
	}
	return p.act.SendKeys(ctx, loginPasswordInput, password)
}

// Submit sends the password form. With waitForHome set it also waits for the
// signed-in profile button.
func (p *LoginPage) Submit(ctx context.Context, waitForHome bool) error {
	if _, err := p.waits.Visible(ctx, loginSubmitButton); err != nil {
		return err
	}
	if err := p.act.Click(ctx, loginSubmitButton); err != nil {
		return err
	}
	if !waitForHome {
		return nil
	}
	present, err := p.act.IsElementsPresent(ctx, loginProfileButton, p.opts.loadTimeout)
	if err != nil {
		return err
	}
	if !present {
		return &element.Error{
			Kind:    element.KindPageNotLoaded,
			Element: loginProfileButton.String(),
			Detail:  fmt.Sprintf("Home page was not loaded. Waited for %s", p.opts.loadTimeout),
		}
	}
	return nil
}

// HandleWelcomePopup closes the greeting modal shown after the first login.
func (p *LoginPage) HandleWelcomePopup(ctx context.Context) error {
	shown, err := p.act.IsDisplayed(ctx, loginWelcomeClose, false)
	if err != nil || !shown {
		return err
	}
	p.logger.Debug("Closing welcome popup.")
	if err := p.act.Click(ctx, loginWelcomeClose); err != nil {
		return err
	}
	_, err = p.waits.NotVisible(ctx, loginWelcomeClose, waits.Raise(true))
	return err
}

// NavigateToHomeFromContent returns to the search home page through the
// header logo, unless the search form is already shown.
func (p *LoginPage) NavigateToHomeFromContent(ctx context.Context) error {
	shown, err := p.act.IsDisplayed(ctx, loginSearchForm, false)
	if err != nil {
		return err
	}
	if !shown {
		if err := p.act.Click(ctx, loginHomeLogo); err != nil {
			return err
		}
		ok, err := p.waits.Visible(ctx, loginSearchForm, waits.WithTimeout(p.opts.loadTimeout), waits.Raise(false))
		if err != nil {
			return err
		}
		if !ok {
			return element.Errorf(element.KindFlowFailed, loginSearchForm.String(), "Failed to navigate to home page from content.")
		}
	}
	p.logger.Info("Home page successfully loaded.")
	return nil
}

// Login runs the whole sign-in flow with creds and ends on the home page.
// Any failing step is reported as FlowFailed wrapping the cause.
func (p *LoginPage) Login(ctx context.Context, creds config.Credentials) error {
	p.logger.Info("Logging in.", zap.String("username", creds.Username))
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"open login page", p.Open},
		{"enter account", p.ClickEnterInAccount},
		{"fill email", func(ctx context.Context) error { return p.FillEmail(ctx, creds.Username) }},
		{"continue", p.ClickNext},
		{"fill password", func(ctx context.Context) error { return p.FillPassword(ctx, creds.Password) }},
		{"submit", func(ctx context.Context) error { return p.Submit(ctx, true) }},
		{"close welcome popup", p.HandleWelcomePopup},
		{"return home", p.NavigateToHomeFromContent},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			p.logger.Error("Login failed.", zap.String("step", step.name), zap.Error(err))
			return flowFailed(fmt.Sprintf("login as %s failed at '%s'", creds.Username, step.name), err)
		}
	}
	p.logger.Info("Logged in.", zap.String("username", creds.Username))
	return nil
}

// LoginWithSession signs in with the session's configured credentials.
func (p *LoginPage) LoginWithSession(ctx context.Context) error {
	creds, err := p.session.Credentials()
	if err != nil {
		return flowFailed("loading credentials", err)
	}
	return p.Login(ctx, creds)
}

// ensureLoggedIn signs in unless the page was built with SkipLogin.
func (p *LoginPage) ensureLoggedIn(ctx context.Context) error {
	if p.opts.skipLogin {
		return nil
	}
	return p.LoginWithSession(ctx)
}
