// Package launch starts the browser selected in the configuration and hands out its
// page as a browser.Driver.
package launch

import (
	"fmt"

	"github.com/luispater/pagechain/internal/browser"
	"github.com/luispater/pagechain/internal/browser/chrome"
	"github.com/luispater/pagechain/internal/browser/firefox"
	"github.com/luispater/pagechain/internal/config"
	log "github.com/sirupsen/logrus"
)

// Session is a running browser with one page. Every chain of a session shares its
// driver, so chains must not run on it concurrently.
type Session struct {
	Driver browser.Driver
	Name   string

	reset func() error
	close func() error
}

// Opener starts a session. Open is the real one; tests substitute their own.
type Opener func(appConfig *config.AppConfig) (*Session, error)

// NewSession wraps an already running driver. reset and close may be nil.
func NewSession(name string, driver browser.Driver, reset, close func() error) *Session {
	return &Session{Driver: driver, Name: name, reset: reset, close: close}
}

// Open launches the browser named by the browser driver setting.
func Open(appConfig *config.AppConfig) (*Session, error) {
	switch appConfig.Browser.Driver {
	case config.DriverChrome:
		return openChrome(appConfig)
	case config.DriverFirefox:
		return openFirefox(appConfig)
	default:
		return nil, fmt.Errorf("unsupported browser driver %q", appConfig.Browser.Driver)
	}
}

func openChrome(appConfig *config.AppConfig) (*Session, error) {
	manager, err := chrome.NewManager(appConfig)
	if err != nil {
		return nil, err
	}
	if err = manager.Launch(); err != nil {
		return nil, err
	}
	p, err := manager.NewPage()
	if err != nil {
		_ = manager.Close()
		return nil, err
	}
	return NewSession(config.DriverChrome, p, manager.ClearBrowserCookies, func() error {
		p.Close()
		return manager.Close()
	}), nil
}

func openFirefox(appConfig *config.AppConfig) (*Session, error) {
	manager, err := firefox.NewManager(appConfig)
	if err != nil {
		return nil, err
	}
	if err = manager.Launch(); err != nil {
		_ = manager.Close()
		return nil, err
	}
	p, err := manager.NewPage()
	if err != nil {
		_ = manager.Close()
		return nil, err
	}
	return NewSession(config.DriverFirefox, p, manager.ClearBrowserCookies, func() error {
		if errClose := p.Close(); errClose != nil {
			log.Debugf("Error closing page: %v", errClose)
		}
		return manager.Close()
	}), nil
}

// Reset clears the cookies of the browser so the next chain starts logged out.
func (s *Session) Reset() error {
	if s.reset == nil {
		return nil
	}
	return s.reset()
}

// Close shuts the browser down.
func (s *Session) Close() error {
	if s.close == nil {
		return nil
	}
	log.Debugf("closing %s session", s.Name)
	err := s.close()
	s.close = nil
	return err
}
