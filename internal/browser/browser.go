package browser

import (
	"context"
	"fmt"
)

// By is a locator strategy.
type By string

const (
	ByID    By = "id"
	ByName  By = "name"
	ByCSS   By = "css"
	ByXPath By = "xpath"
)

// Locator identifies how to find an element on the current page.
type Locator struct {
	By       By
	Criteria string
}

func ID(id string) Locator        { return Locator{By: ByID, Criteria: id} }
func Name(name string) Locator    { return Locator{By: ByName, Criteria: name} }
func CSS(selector string) Locator { return Locator{By: ByCSS, Criteria: selector} }
func XPath(expr string) Locator   { return Locator{By: ByXPath, Criteria: expr} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Criteria)
}

// Selector returns the locator as a CSS selector. XPath locators have no CSS form
// and report false.
func (l Locator) Selector() (string, bool) {
	switch l.By {
	case ByID:
		return fmt.Sprintf("[id=%q]", l.Criteria), true
	case ByName:
		return fmt.Sprintf("[name=%q]", l.Criteria), true
	case ByCSS:
		return l.Criteria, true
	default:
		return "", false
	}
}

// Driver is the browser capability every page object is bound to. One driver is
// shared by all pages of a chain; implementations are not expected to be safe for
// interleaved use by two chains.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	// WaitVisible blocks until the element is present and visible or ctx is done.
	WaitVisible(ctx context.Context, loc Locator) error
	IsVisible(ctx context.Context, loc Locator) (bool, error)
	ScrollIntoView(ctx context.Context, loc Locator) error
	Click(ctx context.Context, loc Locator) error
	Clear(ctx context.Context, loc Locator) error
	SendKeys(ctx context.Context, loc Locator, text string) error
	Text(ctx context.Context, loc Locator) (string, error)
	Highlight(ctx context.Context, loc Locator) error

	// Screenshot returns a PNG of the current viewport.
	Screenshot(ctx context.Context) ([]byte, error)
}
