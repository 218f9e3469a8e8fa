// Package demo holds the page objects of the demo login site served by the fixture
// server: username, password, home and profile, chained in a cycle that logout closes.
package demo

import (
	"context"
	"errors"
	"fmt"

	"github.com/luispater/pagechain/internal/browser"
	"github.com/luispater/pagechain/internal/page"
)

const (
	LoginPageUsername page.Key = "DemoLoginPageUsername"
	LoginPagePassword page.Key = "DemoLoginPagePassword"
	HomePageKey       page.Key = "DemoHomePage"
	ProfilePageKey    page.Key = "DemoProfilePage"
)

// Paths of the demo site.
const (
	PathLoginUser     = "/loginuser.html"
	PathLoginPassword = "/loginpassword.html"
	PathHome          = "/home.html"
	PathProfile       = "/profile.html"
)

// Chain parameters read by the demo pages.
const (
	ParamUsername = "username"
	ParamPassword = "password"
)

// Locators of the demo site.
var (
	EditUserName = browser.ID("usernameOrEmail")
	BtnContinue  = browser.Name("Continue")
	EditPassword = browser.ID("password")
	BtnLogin     = browser.Name("LogIn")
	// LoginError is shown by the password page instead of navigating when the
	// credentials are rejected.
	LoginError = browser.ID("loginError")
	BtnProfile = browser.Name("Profile")
	BtnLogout  = browser.Name("LogOut")
)

// ErrLoginRejected is wrapped in the action failure of the password page.
var ErrLoginRejected = errors.New("login rejected")

// Descriptors returns the demo pages for the registration pass.
func Descriptors() []page.Descriptor {
	return []page.Descriptor{
		loginUsernamePage(),
		loginPasswordPage(),
		homePage(),
		profilePage(),
	}
}

// Open starts a chain at the username page. params carry the driver and usually the
// url of the login page.
func Open(ctx context.Context, r *page.Registry, params page.Params) (*LoginUsernamePage, error) {
	return page.Start[*LoginUsernamePage](ctx, r, params)
}

// LoginUsernamePage asks for the user name.
type LoginUsernamePage struct {
	*page.Base
}

func loginUsernamePage() page.Descriptor {
	return page.Define(LoginPageUsername, LoginPagePassword,
		page.Locators{
			"editUserName": EditUserName,
			"btnContinue":  BtnContinue,
		},
		func(b *page.Base) *LoginUsernamePage { return &LoginUsernamePage{Base: b} },
		func(ctx context.Context, p *LoginUsernamePage, c page.Chain) error {
			return p.submit(ctx, c.String(ParamUsername))
		})
}

func (p *LoginUsernamePage) submit(ctx context.Context, username string) error {
	if err := p.SetField(ctx, "editUserName", username); err != nil {
		return err
	}
	return p.Click(ctx, "btnContinue")
}

// Next submits username, or the one already in the chain when empty.
func (p *LoginUsernamePage) Next(ctx context.Context, username string) (*LoginPasswordPage, error) {
	return page.Next[*LoginPasswordPage](ctx, p, credential(ParamUsername, username))
}

// LoginToProfile logs in and opens the profile page in one call.
func (p *LoginUsernamePage) LoginToProfile(ctx context.Context, username, password string) (*ProfilePage, error) {
	passwordPage, err := p.Next(ctx, username)
	if err != nil {
		return nil, err
	}
	home, err := passwordPage.Next(ctx, password)
	if err != nil {
		return nil, err
	}
	return home.Next(ctx)
}

// LoginAndLogout runs the whole cycle and returns the username page it ends on.
func (p *LoginUsernamePage) LoginAndLogout(ctx context.Context, username, password string) (*LoginUsernamePage, error) {
	profile, err := p.LoginToProfile(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return profile.Next(ctx)
}

// LoginPasswordPage asks for the password. Submitting either leads to the home page or
// shows an error banner; the banner fails the advance.
type LoginPasswordPage struct {
	*page.Base
}

func loginPasswordPage() page.Descriptor {
	return page.Define(LoginPagePassword, HomePageKey,
		page.Locators{
			"editPassword": EditPassword,
			"btnLogin":     BtnLogin,
		},
		func(b *page.Base) *LoginPasswordPage { return &LoginPasswordPage{Base: b} },
		func(ctx context.Context, p *LoginPasswordPage, c page.Chain) error {
			return p.submit(ctx, c.String(ParamPassword))
		})
}

func (p *LoginPasswordPage) submit(ctx context.Context, password string) error {
	if err := p.SetField(ctx, "editPassword", password); err != nil {
		return err
	}
	if err := p.Click(ctx, "btnLogin"); err != nil {
		return err
	}

	m := p.Method()
	i, err := m.WaitFirst(ctx, BtnProfile, LoginError)
	if err != nil {
		return err
	}
	if i == 1 {
		msg, _ := m.Text(ctx, LoginError)
		return fmt.Errorf("%w: %s", ErrLoginRejected, msg)
	}
	return nil
}

// Next submits password, or the one already in the chain when empty.
func (p *LoginPasswordPage) Next(ctx context.Context, password string) (*HomePage, error) {
	return page.Next[*HomePage](ctx, p, credential(ParamPassword, password))
}

// HomePage is the landing page after login. Only the profile button matters here.
type HomePage struct {
	*page.Base
}

func homePage() page.Descriptor {
	return page.Define(HomePageKey, ProfilePageKey,
		page.Locators{"btnProfile": BtnProfile},
		func(b *page.Base) *HomePage { return &HomePage{Base: b} },
		func(ctx context.Context, p *HomePage, _ page.Chain) error {
			return p.Click(ctx, "btnProfile")
		})
}

func (p *HomePage) Next(ctx context.Context) (*ProfilePage, error) {
	return page.Next[*ProfilePage](ctx, p, nil)
}

// ProfilePage logs out back to the username page.
type ProfilePage struct {
	*page.Base
}

func profilePage() page.Descriptor {
	return page.Define(ProfilePageKey, LoginPageUsername,
		page.Locators{"btnLogout": BtnLogout},
		func(b *page.Base) *ProfilePage { return &ProfilePage{Base: b} },
		func(ctx context.Context, p *ProfilePage, _ page.Chain) error {
			return p.Click(ctx, "btnLogout")
		})
}

func (p *ProfilePage) Next(ctx context.Context) (*LoginUsernamePage, error) {
	return page.Next[*LoginUsernamePage](ctx, p, nil)
}

func credential(key, value string) page.Params {
	if value == "" {
		return nil
	}
	return page.Params{key: value}
}
