// Package browsertest provides a scripted in-memory browser.Driver for tests.
//
// A Driver holds a set of screens keyed by URL. Each screen declares its title, the
// elements that are visible on it and what clicking an element does. Nothing is
// rendered; waits poll the current screen until the context is done.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luispater/pagechain/internal/browser"
)

// ClickFunc runs when an element is clicked. It may call Go or Show on the driver.
type ClickFunc func(d *Driver) error

// Screen is one page of a simulated site.
type Screen struct {
	Title    string
	Elements []browser.Locator
	Hidden   []browser.Locator
	Texts    map[browser.Locator]string
	OnClick  map[browser.Locator]ClickFunc
}

// Driver is a fake browser.Driver.
type Driver struct {
	mu      sync.Mutex
	screens map[string]*Screen
	current string
	shown   map[browser.Locator]bool
	values  map[browser.Locator]string
	actions []string
	poll    time.Duration
}

var _ browser.Driver = (*Driver)(nil)

// PNG is what Screenshot returns.
var PNG = []byte("\x89PNG\r\n\x1a\nbrowsertest")

func NewDriver(screens map[string]*Screen) *Driver {
	return &Driver{
		screens: screens,
		shown:   make(map[browser.Locator]bool),
		values:  make(map[browser.Locator]string),
		poll:    10 * time.Millisecond,
	}
}

// Go switches to url without recording an action, as a link or form submit would.
func (d *Driver) Go(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.goLocked(url)
}

func (d *Driver) goLocked(url string) error {
	if _, ok := d.screens[url]; !ok {
		return fmt.Errorf("net::ERR_CONNECTION_REFUSED at %s", url)
	}
	d.current = url
	d.shown = make(map[browser.Locator]bool)
	d.values = make(map[browser.Locator]string)
	return nil
}

// Show makes a hidden element of the current screen visible.
func (d *Driver) Show(loc browser.Locator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown[loc] = true
}

// Value returns what was typed into loc on the current screen.
func (d *Driver) Value(loc browser.Locator) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[loc]
}

// Current returns the URL of the current screen.
func (d *Driver) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Actions returns the recorded driver calls, e.g. "click name=Continue".
func (d *Driver) Actions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.actions...)
}

func (d *Driver) record(format string, args ...any) {
	d.actions = append(d.actions, fmt.Sprintf(format, args...))
}

func (d *Driver) screen() *Screen {
	if s, ok := d.screens[d.current]; ok {
		return s
	}
	return &Screen{}
}

func (d *Driver) visibleLocked(loc browser.Locator) bool {
	s := d.screen()
	for _, l := range s.Elements {
		if l == loc {
			return true
		}
	}
	if d.shown[loc] {
		for _, l := range s.Hidden {
			if l == loc {
				return true
			}
		}
	}
	return false
}

func (d *Driver) requireVisible(loc browser.Locator) error {
	if !d.visibleLocked(loc) {
		return fmt.Errorf("element %s not visible on %s", loc, d.current)
	}
	return nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("navigate %s", url)
	return d.goLocked(url)
}

func (d *Driver) Location(ctx context.Context) (string, error) {
	return d.Current(), nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen().Title, nil
}

func (d *Driver) WaitVisible(ctx context.Context, loc browser.Locator) error {
	for {
		d.mu.Lock()
		visible := d.visibleLocked(loc)
		d.mu.Unlock()
		if visible {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.poll):
		}
	}
}

func (d *Driver) IsVisible(ctx context.Context, loc browser.Locator) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visibleLocked(loc), nil
}

func (d *Driver) ScrollIntoView(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requireVisible(loc)
}

func (d *Driver) Click(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	if err := d.requireVisible(loc); err != nil {
		d.mu.Unlock()
		return err
	}
	d.record("click %s", loc)
	onClick := d.screen().OnClick[loc]
	d.mu.Unlock()

	if onClick == nil {
		return nil
	}
	return onClick(d)
}

func (d *Driver) Clear(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireVisible(loc); err != nil {
		return err
	}
	d.values[loc] = ""
	return nil
}

func (d *Driver) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireVisible(loc); err != nil {
		return err
	}
	d.record("type %s %s", loc, text)
	d.values[loc] += text
	return nil
}

func (d *Driver) Text(ctx context.Context, loc browser.Locator) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireVisible(loc); err != nil {
		return "", err
	}
	if text, ok := d.values[loc]; ok {
		return text, nil
	}
	return d.screen().Texts[loc], nil
}

func (d *Driver) Highlight(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requireVisible(loc)
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	return PNG, nil
}
