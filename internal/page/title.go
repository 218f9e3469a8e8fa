package page

import (
	"context"
	"strings"
)

// TitleCheckerKey is the key of the built-in TitleChecker page.
const TitleCheckerKey Key = "PageTitleChecker"

// TitleChecker is a terminal page without elements. Open it with url and
// wait_title_contains to assert what a page is titled.
type TitleChecker struct {
	*Base
}

func TitleCheckerPage() Descriptor {
	return Define(TitleCheckerKey, "", nil, func(b *Base) *TitleChecker {
		return &TitleChecker{Base: b}
	}, nil)
}

// Title returns the current title of the browser page.
func (p *TitleChecker) Title(ctx context.Context) (string, error) {
	return p.Driver().Title(ctx)
}

// Contains reports whether the current title contains substr.
func (p *TitleChecker) Contains(ctx context.Context, substr string) (bool, error) {
	title, err := p.Title(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(title, substr), nil
}
