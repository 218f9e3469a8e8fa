package firefox

import (
	"context"
	"time"

	"github.com/luispater/pagechain/internal/browser"
	"github.com/playwright-community/playwright-go"
)

// Page is a Playwright page. It implements browser.Driver.
//
// Playwright calls take a timeout instead of a context, so only the deadline of ctx
// is honoured.
type Page struct {
	page playwright.Page
}

var _ browser.Driver = (*Page)(nil)

func selector(loc browser.Locator) string {
	if sel, ok := loc.Selector(); ok {
		return sel
	}
	return "xpath=" + loc.Criteria
}

// timeout converts the deadline of ctx into Playwright milliseconds. Zero disables the
// Playwright timeout.
func timeout(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return playwright.Float(0)
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

func (p *Page) locator(loc browser.Locator) playwright.Locator {
	return p.page.Locator(selector(loc)).First()
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   timeout(ctx),
	})
	return err
}

func (p *Page) Location(ctx context.Context) (string, error) {
	return p.page.URL(), ctx.Err()
}

func (p *Page) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Title()
}

func (p *Page) WaitVisible(ctx context.Context, loc browser.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.locator(loc).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeout(ctx),
	})
}

func (p *Page) IsVisible(ctx context.Context, loc browser.Locator) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.locator(loc).IsVisible()
}

func (p *Page) ScrollIntoView(ctx context.Context, loc browser.Locator) error {
	return p.locator(loc).ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
		Timeout: timeout(ctx),
	})
}

func (p *Page) Click(ctx context.Context, loc browser.Locator) error {
	return p.locator(loc).Click(playwright.LocatorClickOptions{
		Timeout: timeout(ctx),
	})
}

func (p *Page) Clear(ctx context.Context, loc browser.Locator) error {
	return p.locator(loc).Clear(playwright.LocatorClearOptions{
		Timeout: timeout(ctx),
	})
}

func (p *Page) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	return p.locator(loc).PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Timeout: timeout(ctx),
	})
}

func (p *Page) Text(ctx context.Context, loc browser.Locator) (string, error) {
	return p.locator(loc).InnerText(playwright.LocatorInnerTextOptions{
		Timeout: timeout(ctx),
	})
}

func (p *Page) Highlight(ctx context.Context, loc browser.Locator) error {
	_, err := p.locator(loc).Evaluate("el => { el.style.border = '3px ridge #ff33ff' }", nil, playwright.LocatorEvaluateOptions{
		Timeout: timeout(ctx),
	})
	return err
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		Timeout: timeout(ctx),
	})
}

func (p *Page) Close() error {
	return p.page.Close()
}
