package method

import (
	"context"
	"fmt"

	"github.com/luispater/pagechain/internal/browser"
	log "github.com/sirupsen/logrus"
)

// Element is a named element of a page, resolved through its locator on every use.
type Element struct {
	m       *Method
	Name    string
	Locator browser.Locator
}

// EnsureVisible waits for the element to be visible and scrolls it into view. It does
// not check that the element is enabled.
func (m *Method) EnsureVisible(ctx context.Context, loc browser.Locator) error {
	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.driver.WaitVisible(opCtx, loc); err != nil {
		return fmt.Errorf("element %s not visible on page %s within %v: %w", loc, m.GetURL(ctx), m.timeout, err)
	}
	if err := m.driver.ScrollIntoView(opCtx, loc); err != nil {
		return fmt.Errorf("error scrolling to element %s: %w", loc, err)
	}
	return nil
}

// Element returns a visible, scrolled-into-view element, highlighted when enabled.
func (m *Method) Element(ctx context.Context, name string, loc browser.Locator) (*Element, error) {
	log.Debugf("get element %s (%s)", name, loc)
	if err := m.EnsureVisible(ctx, loc); err != nil {
		return nil, err
	}
	m.highlightElement(ctx, loc)
	m.pause(ctx)
	return &Element{m: m, Name: name, Locator: loc}, nil
}

func (m *Method) highlightElement(ctx context.Context, loc browser.Locator) {
	if !m.highlight {
		return
	}
	if err := m.driver.Highlight(ctx, loc); err != nil {
		log.Debugf("Error highlighting element %s: %v", loc, err)
	}
}

func (e *Element) Click(ctx context.Context) error {
	return e.m.Click(ctx, e.Locator)
}

func (e *Element) SetValue(ctx context.Context, value string) error {
	return e.m.Fill(ctx, e.Locator, value)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.m.Text(ctx, e.Locator)
}

func (e *Element) IsVisible(ctx context.Context) (bool, error) {
	return e.m.driver.IsVisible(ctx, e.Locator)
}
