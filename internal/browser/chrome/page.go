package chrome

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/luispater/pagechain/internal/browser"
	log "github.com/sirupsen/logrus"
)

const highlightStyle = "border: 3px ridge #ff33ff"

// Page is a single Chrome tab. It implements browser.Driver.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ browser.Driver = (*Page)(nil)

func NewPage(browserCtx context.Context) (*Page, error) {
	if browserCtx == nil {
		return nil, errNotLaunched
	}

	var newTargetID target.ID
	err := chromedp.Run(
		browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			newTargetID, err = target.CreateTarget("about:blank").Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create new target (tab): %w", err)
	}

	newPageCtx, newPageCancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(newTargetID))
	if err = chromedp.Run(newPageCtx); err != nil {
		newPageCancel()
		return nil, fmt.Errorf("failed to attach to tab %s: %w", newTargetID, err)
	}

	log.Debugf("New Chromedp page (targetID: %s) created.", newTargetID)

	return &Page{
		ctx:    newPageCtx,
		cancel: newPageCancel,
	}, nil
}

func (p *Page) Close() {
	p.cancel()
}

// run executes actions on the tab, bounded by the deadline and cancellation of ctx.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		opCtx, cancelDeadline = context.WithDeadline(opCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(opCtx, actions...)
}

func query(loc browser.Locator) (string, chromedp.QueryOption) {
	if selector, ok := loc.Selector(); ok {
		return selector, chromedp.ByQuery
	}
	return loc.Criteria, chromedp.BySearch
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *Page) Location(ctx context.Context) (string, error) {
	var currentURL string
	err := p.run(ctx, chromedp.Location(&currentURL))
	return currentURL, err
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *Page) WaitVisible(ctx context.Context, loc browser.Locator) error {
	sel, by := query(loc)
	return p.run(ctx, chromedp.WaitVisible(sel, by))
}

func (p *Page) IsVisible(ctx context.Context, loc browser.Locator) (bool, error) {
	var visible bool
	err := p.run(ctx, chromedp.Evaluate(visibilityScript(loc), &visible))
	return visible, err
}

func (p *Page) ScrollIntoView(ctx context.Context, loc browser.Locator) error {
	sel, by := query(loc)
	return p.run(ctx, chromedp.ScrollIntoView(sel, by))
}

func (p *Page) Click(ctx context.Context, loc browser.Locator) error {
	sel, by := query(loc)
	return p.run(ctx, chromedp.Click(sel, by, chromedp.NodeVisible))
}

func (p *Page) Clear(ctx context.Context, loc browser.Locator) error {
	sel, by := query(loc)
	return p.run(ctx, chromedp.Clear(sel, by))
}

func (p *Page) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	sel, by := query(loc)
	return p.run(ctx, chromedp.SendKeys(sel, text, by))
}

func (p *Page) Text(ctx context.Context, loc browser.Locator) (string, error) {
	sel, by := query(loc)
	var text string
	err := p.run(ctx, chromedp.Text(sel, &text, by))
	return text, err
}

func (p *Page) Highlight(ctx context.Context, loc browser.Locator) error {
	sel, by := query(loc)
	return p.run(ctx, chromedp.SetAttributeValue(sel, "style", highlightStyle, by))
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func visibilityScript(loc browser.Locator) string {
	var find string
	if selector, ok := loc.Selector(); ok {
		find = fmt.Sprintf("document.querySelector(%q)", selector)
	} else {
		find = fmt.Sprintf("document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", loc.Criteria)
	}
	return fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		return style.visibility !== 'hidden' && style.display !== 'none' && rect.width > 0 && rect.height > 0;
	})()`, find)
}
