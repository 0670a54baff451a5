// internal/pages/account.go
package pages

import (
	"context"

	"github.com/xkilldash9x/pagekit/internal/components/calendar"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/interact"
	"github.com/xkilldash9x/pagekit/internal/session"
)

var (
	accountMenuTrigger     = element.CSS("#profile-menu-trigger--content")
	accountMenuItem        = element.CSS(".profile-menu__item")
	accountContent         = element.CSS(".profile-area__content-container")
	accountEmailConfirm    = element.CSS(".email-confirm-banner__email-text")
	accountCheckinExpander = element.CSS(`[data-mode="checkin"]`)
)

// PersonalAccountPage is the profile area reached through the account menu.
type PersonalAccountPage struct {
	Base
	login    *LoginPage
	Calendar *calendar.Calendar
}

func NewPersonalAccountPage(s *session.Session, opts ...Option) *PersonalAccountPage {
	return &PersonalAccountPage{
		Base:     NewBase(s, "PersonalAccount", "/myaccount", []element.Referable{accountContent}, opts...),
		login:    NewLoginPage(s, opts...),
		Calendar: calendar.New(s.Action(), s.Logger()),
	}
}

// Open signs in, unless built with SkipLogin, and walks the account menu to
// the profile area.
func (p *PersonalAccountPage) Open(ctx context.Context) error {
	if err := p.login.ensureLoggedIn(ctx); err != nil {
		return err
	}
	return p.OpenMenu(ctx)
}

// OpenMenu opens the profile menu from the home page and follows its first
// entry to the profile area.
func (p *PersonalAccountPage) OpenMenu(ctx context.Context) error {
	p.logger.Info("Navigating to Personal accounts page.")
	if err := p.login.NavigateToHomeFromContent(ctx); err != nil {
		return err
	}
	if _, err := p.waits.Visible(ctx, accountMenuTrigger); err != nil {
		return err
	}
	if err := p.act.Click(ctx, accountMenuTrigger); err != nil {
		return err
	}
	if _, err := p.waits.Visible(ctx, accountMenuItem); err != nil {
		return err
	}
	if err := p.act.Click(ctx, accountMenuItem); err != nil {
		return err
	}
	return p.Validate(ctx)
}

// FillEmailConfirm types text into the email confirmation banner.
func (p *PersonalAccountPage) FillEmailConfirm(ctx context.Context, text string) error {
	return p.act.SendKeys(ctx, accountEmailConfirm, text, interact.ClearFirst())
}

// ConfirmedEmail reads the address in the email confirmation banner.
func (p *PersonalAccountPage) ConfirmedEmail(ctx context.Context) (string, error) {
	return p.act.Attribute(ctx, accountEmailConfirm, "value")
}

// OpenCheckin expands the check-in date picker.
func (p *PersonalAccountPage) OpenCheckin(ctx context.Context) error {
	return p.Calendar.Open(ctx, accountCheckinExpander)
}
