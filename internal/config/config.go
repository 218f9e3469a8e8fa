package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	DriverChrome  = "chrome"
	DriverFirefox = "firefox"

	DefaultConfigPath  = "config.yaml"
	DefaultPageTimeout = 20
)

// AppConfig holds the application configuration.
type AppConfig struct {
	Version  string           `yaml:"version"`
	Debug    bool             `yaml:"debug"`
	Headless bool             `yaml:"headless"`
	ApiPort  string           `yaml:"api-port"`
	Browser  AppConfigBrowser `yaml:"browser"`
	Page     AppConfigPage    `yaml:"page"`
	Fixture  AppConfigFixture `yaml:"fixture"`
	Runner   AppConfigRunner  `yaml:"runner"`
}

type AppConfigBrowser struct {
	Driver      string   `yaml:"driver"`
	ChromePath  string   `yaml:"chrome-path"`
	FirefoxPath string   `yaml:"firefox-path"`
	Args        []string `yaml:"args"`
	UserDataDir string   `yaml:"user-data-dir,omitempty"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
}

// AppConfigPage holds the defaults every chain starts with. Chain params override them.
type AppConfigPage struct {
	Timeout        float64 `yaml:"timeout"`
	Highlight      *bool   `yaml:"highlight"`
	AnimationDelay float64 `yaml:"animation-delay"`
	ScreenshotDir  string  `yaml:"screenshot-dir"`
}

// AppConfigFixture configures the demo site server. Dir replaces the embedded pages
// when set.
type AppConfigFixture struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Dir      string `yaml:"dir,omitempty"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AppConfigRunner configures chain runs. SecretParams names params, besides those
// that look like passwords or tokens, whose values are masked in run results.
type AppConfigRunner struct {
	Dir          string   `yaml:"dir"`
	FreshSession bool     `yaml:"fresh-session"`
	SecretParams []string `yaml:"secret-params"`
}

// LoadConfig reads the YAML file at path and applies defaults and environment overrides.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data.
func ParseConfig(data []byte) (*AppConfig, error) {
	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	config := &AppConfig{}
	config.applyDefaults()
	return config
}

func (c *AppConfig) applyDefaults() {
	if c.ApiPort == "" {
		c.ApiPort = "8317"
	}
	c.Browser.Driver = strings.ToLower(strings.TrimSpace(c.Browser.Driver))
	if c.Browser.Driver == "" {
		c.Browser.Driver = DriverChrome
	}
	if c.Browser.ChromePath == "" {
		c.Browser.ChromePath = os.Getenv("CHROME_BIN")
	}
	if c.Browser.FirefoxPath == "" {
		c.Browser.FirefoxPath = os.Getenv("FIREFOX_BIN")
	}
	if c.Browser.Width == 0 {
		c.Browser.Width = 1280
	}
	if c.Browser.Height == 0 {
		c.Browser.Height = 800
	}
	if c.Page.Timeout <= 0 {
		c.Page.Timeout = DefaultPageTimeout
	}
	if c.Page.Highlight == nil {
		highlight := true
		c.Page.Highlight = &highlight
	}
	if c.Fixture.Host == "" {
		c.Fixture.Host = "127.0.0.1"
	}
	if c.Fixture.Port == "" {
		c.Fixture.Port = "8080"
	}
	if c.Fixture.Username == "" {
		c.Fixture.Username = "user"
	}
	if c.Fixture.Password == "" {
		c.Fixture.Password = "pass"
	}
	if c.Runner.Dir == "" {
		c.Runner.Dir = "chains"
	}
}

func (c *AppConfig) validate() error {
	switch c.Browser.Driver {
	case DriverChrome, DriverFirefox:
	default:
		return fmt.Errorf("unsupported browser driver %q, expected %q or %q", c.Browser.Driver, DriverChrome, DriverFirefox)
	}
	if c.Page.AnimationDelay < 0 {
		return fmt.Errorf("page animation-delay must not be negative")
	}
	return nil
}

// PageDefaults returns the page options as chain parameters.
func (c *AppConfig) PageDefaults() map[string]any {
	params := map[string]any{
		"timeout":         c.Page.Timeout,
		"highlight":       *c.Page.Highlight,
		"animation_delay": c.Page.AnimationDelay,
	}
	if c.Page.ScreenshotDir != "" {
		params["screenshot_dir"] = c.Page.ScreenshotDir
	}
	return params
}

// FixtureURL is the base URL of the fixture web server.
func (c *AppConfig) FixtureURL() string {
	host := c.Fixture.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return "http://" + host + ":" + c.Fixture.Port
}

// FixtureAddr is the listen address of the fixture web server.
func (c *AppConfig) FixtureAddr() string {
	return c.Fixture.Host + ":" + c.Fixture.Port
}
