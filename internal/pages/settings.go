// internal/pages/settings.go
package pages

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/interact"
	"github.com/xkilldash9x/pagekit/internal/session"
)

var (
	settingsAccountMenu = element.CSS("#current_account")
	settingsLink        = element.XPath("//*[@id='profile-menu']//*[contains(text(), 'Settings')]")
	settingsNickname    = element.CSS("input#nickname")
	settingsBirthDay    = element.CSS("select#bday")
	settingsBirthMonth  = element.CSS("select#bmonth")
	settingsBirthYear   = element.CSS("select#byear")
	settingsNationality = element.CSS("select#nationality")
	settingsSave        = element.CSS(`#personal-info button[type="submit"]`)
	settingsErrorModal  = element.CSS(".bui-modal--error .bui-modal__text")
)

// PersonalInfo is the editable part of the settings form. Empty fields are
// left untouched.
type PersonalInfo struct {
	Nickname    string
	Day         string
	Month       string
	Year        string
	Nationality string
}

// SettingsPage edits the account's personal details.
type SettingsPage struct {
	Base
	login *LoginPage
}

func NewSettingsPage(s *session.Session, opts ...Option) *SettingsPage {
	return &SettingsPage{
		Base:  NewBase(s, "Settings", "/mysettings", []element.Referable{settingsNickname}, opts...),
		login: NewLoginPage(s, opts...),
	}
}

// Open signs in, unless built with SkipLogin, and reaches the settings form
// through the account menu.
func (p *SettingsPage) Open(ctx context.Context) error {
	if err := p.login.ensureLoggedIn(ctx); err != nil {
		return err
	}
	p.logger.Info("Navigating to settings page.", zap.String("element", settingsLink.String()))
	if err := p.act.Click(ctx, settingsAccountMenu); err != nil {
		return err
	}
	if err := p.act.Click(ctx, settingsLink); err != nil {
		return err
	}
	return p.Validate(ctx)
}

func (p *SettingsPage) SetNickname(ctx context.Context, nickname string) error {
	if _, err := p.waits.Visible(ctx, settingsNickname); err != nil {
		return err
	}
	return p.act.SendKeys(ctx, settingsNickname, nickname, interact.ClearFirst())
}

// SetBirthday picks the birth date by option text, such as "2", "July" and
// "1990". Empty parts are skipped.
func (p *SettingsPage) SetBirthday(ctx context.Context, day, month, year string) error {
	parts := []struct {
		ref  element.Locator
		text string
	}{
		{settingsBirthDay, day},
		{settingsBirthMonth, month},
		{settingsBirthYear, year},
	}
	for _, part := range parts {
		if part.text == "" {
			continue
		}
		if err := p.act.SelectOption(ctx, part.ref, part.text); err != nil {
			return err
		}
	}
	return nil
}

func (p *SettingsPage) SetNationality(ctx context.Context, country string) error {
	return p.act.SelectOption(ctx, settingsNationality, country)
}

// Save submits the form and waits for the success toaster. An error modal
// fails with FlowFailed quoting it.
func (p *SettingsPage) Save(ctx context.Context) error {
	if err := p.act.Click(ctx, settingsSave); err != nil {
		return err
	}
	return p.act.HandleEventsAfterSave(ctx, settingsErrorModal, nil)
}

// EditPersonalInfo fills the non-empty fields of info and saves.
func (p *SettingsPage) EditPersonalInfo(ctx context.Context, info PersonalInfo) error {
	if info.Nickname != "" {
		if err := p.SetNickname(ctx, info.Nickname); err != nil {
			return err
		}
	}
	if err := p.SetBirthday(ctx, info.Day, info.Month, info.Year); err != nil {
		return err
	}
	if info.Nationality != "" {
		if err := p.SetNationality(ctx, info.Nationality); err != nil {
			return err
		}
	}
	return p.Save(ctx)
}
