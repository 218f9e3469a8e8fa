package page

import (
	"context"
	"fmt"

	"github.com/luispater/pagechain/internal/browser"
	"github.com/luispater/pagechain/internal/method"
	log "github.com/sirupsen/logrus"
)

// Page is a live page object. Page types are structs embedding *Base and are
// described to a Registry with Define.
type Page interface {
	Key() Key
	Descriptor() *Descriptor
	Registry() *Registry
	Chain() Chain
	Advance(ctx context.Context, extra Params) (Page, error)

	base() *Base
}

// Base holds what every page shares: its descriptor, the driver of the chain, the
// element service and the chain context stored for the next advance.
type Base struct {
	desc   *Descriptor
	reg    *Registry
	chain  Chain
	opts   Options
	method *method.Method
	self   Page
}

// newBase runs the construction contract: navigate to the one-time url if present,
// wait for the title when asked, then require every declared element to be visible.
func newBase(ctx context.Context, reg *Registry, d *Descriptor, c Chain) (*Base, error) {
	driver := c.Driver()
	if driver == nil {
		return nil, fmt.Errorf("page %s: %w", d.Key, ErrNoDriver)
	}
	opts, err := parseOptions(c)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", d.Key, err)
	}

	b := &Base{
		desc:   d,
		reg:    reg,
		chain:  c.withoutOneTime(),
		opts:   opts,
		method: method.NewMethod(driver, opts.Timeout, opts.Highlight),
	}

	if opts.URL != "" {
		if err = b.method.Navigate(ctx, opts.URL); err != nil {
			return nil, fmt.Errorf("page %s: navigate to %s: %w", d.Key, opts.URL, err)
		}
	}

	if opts.WaitTitleContains != "" {
		title, ok := b.method.WaitTitleContains(ctx, opts.WaitTitleContains)
		if !ok {
			return nil, &TitleMismatchError{
				Page:       d.Key,
				URL:        b.method.GetURL(ctx),
				Expected:   opts.WaitTitleContains,
				Title:      title,
				Screenshot: b.screenshot(ctx),
			}
		}
	}

	if missing := b.method.WaitLoaded(ctx, d.Locators); len(missing) > 0 {
		return nil, &PageNotLoadedError{
			Page:       d.Key,
			URL:        b.method.GetURL(ctx),
			Missing:    missing,
			Screenshot: b.screenshot(ctx),
		}
	}

	b.method.SetDelay(opts.AnimationDelay)
	log.Debugf("page %s loaded", d.Key)
	return b, nil
}

func (b *Base) screenshot(ctx context.Context) string {
	if b.opts.ScreenshotDir == "-" {
		return ""
	}
	path, err := b.method.SaveScreenshot(ctx, b.opts.ScreenshotDir)
	if err != nil {
		log.Debugf("Error saving screenshot: %v", err)
		return ""
	}
	return path
}

func (b *Base) base() *Base { return b }

func (b *Base) Key() Key                       { return b.desc.Key }
func (b *Base) Descriptor() *Descriptor        { return b.desc }
func (b *Base) Registry() *Registry            { return b.reg }
func (b *Base) Chain() Chain                   { return b.chain }
func (b *Base) Options() Options               { return b.opts }
func (b *Base) Driver() browser.Driver         { return b.method.Driver() }
func (b *Base) Method() *method.Method         { return b.method }
func (b *Base) URL(ctx context.Context) string { return b.method.GetURL(ctx) }

func (b *Base) locator(name string) (browser.Locator, error) {
	loc, ok := b.desc.Locators[name]
	if !ok {
		return browser.Locator{}, fmt.Errorf("page %s: %w: %q", b.desc.Key, ErrUnknownElement, name)
	}
	return loc, nil
}

// Field returns the named element, visible and scrolled into view.
func (b *Base) Field(ctx context.Context, name string) (*method.Element, error) {
	loc, err := b.locator(name)
	if err != nil {
		return nil, err
	}
	return b.method.Element(ctx, name, loc)
}

// SetField replaces the content of the named input element.
func (b *Base) SetField(ctx context.Context, name, value string) error {
	loc, err := b.locator(name)
	if err != nil {
		return err
	}
	log.Debugf("set %s = '%s'", name, value)
	return b.method.Fill(ctx, loc, value)
}

func (b *Base) Click(ctx context.Context, name string) error {
	loc, err := b.locator(name)
	if err != nil {
		return err
	}
	return b.method.Click(ctx, loc)
}

func (b *Base) Text(ctx context.Context, name string) (string, error) {
	loc, err := b.locator(name)
	if err != nil {
		return "", err
	}
	return b.method.Text(ctx, loc)
}
