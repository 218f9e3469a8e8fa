package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/luispater/pagechain/internal/config"
	log "github.com/sirupsen/logrus"
)

var errNotLaunched = errors.New("chrome is not running, call Launch first")

// Manager owns one Chrome process. Pages are tabs opened with NewPage.
type Manager struct {
	appConfig *config.AppConfig

	allocator   context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
}

// NewManager prepares the Chrome allocator. The process starts with Launch.
func NewManager(appConfig *config.AppConfig) (*Manager, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("appConfig cannot be nil")
	}
	if appConfig.Browser.ChromePath == "" {
		log.Warn("Chrome path not specified in config or CHROME_BIN env, will attempt auto-detection.")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(appConfig)...)
	return &Manager{
		appConfig:   appConfig,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

func allocatorOptions(appConfig *config.AppConfig) []chromedp.ExecAllocatorOption {
	b := appConfig.Browser
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(b.Width, b.Height),
	}
	if b.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(b.ChromePath))
	}
	if appConfig.Headless {
		opts = append(opts, chromedp.Headless, chromedp.DisableGPU)
	}
	if b.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(b.UserDataDir))
	}
	for _, arg := range b.Args {
		if name, value, ok := parseFlag(arg); ok {
			opts = append(opts, chromedp.Flag(name, value))
		}
	}
	return opts
}

// parseFlag turns a command line switch such as --lang=de or --mute-audio into a
// chromedp flag. A switch without a value is enabled.
func parseFlag(arg string) (string, any, bool) {
	arg = strings.TrimSpace(arg)
	name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
	if name == "" {
		return "", nil, false
	}
	if !hasValue {
		return name, true, true
	}
	return name, value, true
}

// Launch starts Chrome and logs which build came up.
func (m *Manager) Launch() error {
	if m.allocator == nil {
		return fmt.Errorf("manager is closed")
	}

	m.browserCtx, m.cancel = chromedp.NewContext(m.allocator, chromedp.WithLogf(log.Infof))

	var product, userAgent string
	err := chromedp.Run(m.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var errVersion error
		_, product, _, userAgent, _, errVersion = cdpbrowser.GetVersion().Do(ctx)
		return errVersion
	}))
	if err != nil {
		_ = m.Close()
		return fmt.Errorf("failed to launch chrome: %w", err)
	}

	log.Infof("Chrome %s launched", product)
	log.Debugf("Chrome user agent: %s", userAgent)
	return nil
}

// NewPage opens a tab that drives pages.
func (m *Manager) NewPage() (*Page, error) {
	if m.browserCtx == nil {
		return nil, errNotLaunched
	}
	return NewPage(m.browserCtx)
}

// ClearBrowserCookies logs every tab out of the sites it visited.
func (m *Manager) ClearBrowserCookies() error {
	if m.browserCtx == nil {
		return errNotLaunched
	}
	if err := chromedp.Run(m.browserCtx, network.ClearBrowserCookies()); err != nil {
		return fmt.Errorf("failed to clear browser cookies: %w", err)
	}
	log.Debug("Browser cookies cleared")
	return nil
}

// Close shuts the browser process down. It is safe to call more than once.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.browserCtx = nil
	}
	if m.allocCancel != nil {
		m.allocCancel()
		m.allocCancel = nil
		m.allocator = nil
		log.Info("Chrome closed")
	}
	return nil
}
