// Package demotest simulates the demo login site on a browsertest.Driver.
package demotest

import (
	"github.com/luispater/pagechain/internal/browser"
	"github.com/luispater/pagechain/internal/browser/browsertest"
	"github.com/luispater/pagechain/internal/pages/demo"
)

const BaseURL = "http://demo.test"

// LoginErrorText is the text of the banner shown for rejected credentials.
const LoginErrorText = "Unknown username or bad password"

// URL returns the absolute URL of a demo path.
func URL(path string) string {
	return BaseURL + path
}

// NewSite returns a driver showing the demo site that accepts only username and
// password. The driver starts on a blank screen; navigate to the login page first.
func NewSite(username, password string) *browsertest.Driver {
	var typedUser string

	return browsertest.NewDriver(map[string]*browsertest.Screen{
		URL(demo.PathLoginUser): {
			Title:    "Log In - Demo",
			Elements: []browser.Locator{demo.EditUserName, demo.BtnContinue},
			OnClick: map[browser.Locator]browsertest.ClickFunc{
				demo.BtnContinue: func(d *browsertest.Driver) error {
					typedUser = d.Value(demo.EditUserName)
					return d.Go(URL(demo.PathLoginPassword))
				},
			},
		},
		URL(demo.PathLoginPassword): {
			Title:    "Password - Demo",
			Elements: []browser.Locator{demo.EditPassword, demo.BtnLogin},
			Hidden:   []browser.Locator{demo.LoginError},
			Texts:    map[browser.Locator]string{demo.LoginError: LoginErrorText},
			OnClick: map[browser.Locator]browsertest.ClickFunc{
				demo.BtnLogin: func(d *browsertest.Driver) error {
					if typedUser != username || d.Value(demo.EditPassword) != password {
						d.Show(demo.LoginError)
						return nil
					}
					return d.Go(URL(demo.PathHome))
				},
			},
		},
		URL(demo.PathHome): {
			Title:    "Home - Demo",
			Elements: []browser.Locator{demo.BtnProfile},
			OnClick: map[browser.Locator]browsertest.ClickFunc{
				demo.BtnProfile: func(d *browsertest.Driver) error {
					return d.Go(URL(demo.PathProfile))
				},
			},
		},
		URL(demo.PathProfile): {
			Title:    "Profile - Demo",
			Elements: []browser.Locator{demo.BtnLogout},
			OnClick: map[browser.Locator]browsertest.ClickFunc{
				demo.BtnLogout: func(d *browsertest.Driver) error {
					return d.Go(URL(demo.PathLoginUser))
				},
			},
		},
	})
}
