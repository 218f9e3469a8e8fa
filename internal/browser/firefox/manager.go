package firefox

import (
	"errors"
	"fmt"

	"github.com/luispater/pagechain/internal/config"
	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"
)

var errNotLaunched = errors.New("firefox is not running, call Launch first")

// Manager owns the Playwright driver and one Firefox browser context.
type Manager struct {
	appConfig *config.AppConfig
	pw        *playwright.Playwright
	browser   playwright.Browser
	context   playwright.BrowserContext
}

// Install downloads the Playwright driver and Firefox build if they are missing.
func Install(verbose bool) error {
	return playwright.Install(&playwright.RunOptions{
		Browsers: []string{"firefox"},
		Verbose:  verbose,
	})
}

// NewManager starts the Playwright driver. Firefox starts with Launch.
func NewManager(appConfig *config.AppConfig) (*Manager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	return &Manager{appConfig: appConfig, pw: pw}, nil
}

func launchOptions(appConfig *config.AppConfig) playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(appConfig.Headless),
		Args:     appConfig.Browser.Args,
	}
	if appConfig.Browser.FirefoxPath != "" {
		opts.ExecutablePath = playwright.String(appConfig.Browser.FirefoxPath)
	}
	return opts
}

// Launch starts Firefox with a fresh browser context sized to the configured window.
func (m *Manager) Launch() error {
	if m.pw == nil {
		return fmt.Errorf("manager is closed")
	}
	if path := m.appConfig.Browser.FirefoxPath; path != "" {
		log.Debugf("Launching Firefox from %s", path)
	}

	b, err := m.pw.Firefox.Launch(launchOptions(m.appConfig))
	if err != nil {
		return fmt.Errorf("failed to launch firefox: %w", err)
	}
	m.browser = b

	m.context, err = b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.appConfig.Browser.Width,
			Height: m.appConfig.Browser.Height,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create firefox context: %w", err)
	}
	log.Infof("Firefox %s launched", b.Version())
	return nil
}

// NewPage opens a tab that drives pages.
func (m *Manager) NewPage() (*Page, error) {
	if m.context == nil {
		return nil, errNotLaunched
	}
	p, err := m.context.NewPage()
	if err != nil {
		return nil, err
	}
	return &Page{page: p}, nil
}

// ClearBrowserCookies logs every tab out of the sites it visited.
func (m *Manager) ClearBrowserCookies() error {
	if m.context == nil {
		return errNotLaunched
	}
	if err := m.context.ClearCookies(); err != nil {
		return fmt.Errorf("failed to clear browser cookies: %w", err)
	}
	log.Debug("Browser cookies cleared")
	return nil
}

// Close closes Firefox and stops the Playwright driver. The first error wins.
func (m *Manager) Close() error {
	var firstErr error
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			log.Debugf("Error closing firefox: %v", err)
			firstErr = err
		}
		m.browser, m.context = nil, nil
	}
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			log.Debugf("Error stopping playwright: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		m.pw = nil
	}
	return firstErr
}
