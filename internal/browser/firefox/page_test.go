package firefox

import (
	"context"
	"testing"
	"time"

	"github.com/luispater/pagechain/internal/browser"
	"github.com/luispater/pagechain/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	assert.Equal(t, `[id="password"]`, selector(browser.ID("password")))
	assert.Equal(t, `[name="LogIn"]`, selector(browser.Name("LogIn")))
	assert.Equal(t, "form > button", selector(browser.CSS("form > button")))
	assert.Equal(t, "xpath=//button[contains(.,'Continue')]", selector(browser.XPath("//button[contains(.,'Continue')]")))
}

func TestTimeoutFromDeadline(t *testing.T) {
	require.NotNil(t, timeout(context.Background()))
	assert.Zero(t, *timeout(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ms := *timeout(ctx)
	assert.Greater(t, ms, 1000.0)
	assert.LessOrEqual(t, ms, 2000.0)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.Equal(t, 1.0, *timeout(expired))
}

func TestLaunchOptions(t *testing.T) {
	cfg := config.Default()
	opts := launchOptions(cfg)
	assert.False(t, *opts.Headless)
	assert.Nil(t, opts.ExecutablePath)

	cfg.Headless = true
	cfg.Browser.FirefoxPath = "/opt/firefox/firefox"
	cfg.Browser.Args = []string{"-private"}
	opts = launchOptions(cfg)
	assert.True(t, *opts.Headless)
	assert.Equal(t, "/opt/firefox/firefox", *opts.ExecutablePath)
	assert.Equal(t, []string{"-private"}, opts.Args)
}
