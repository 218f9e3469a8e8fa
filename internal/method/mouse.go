package method

import (
	"context"
	"fmt"

	"github.com/luispater/pagechain/internal/browser"
	log "github.com/sirupsen/logrus"
)

func (m *Method) Click(ctx context.Context, loc browser.Locator) error {
	log.Debugf("Attempting to find and click element with selector: %s", loc)
	if err := m.EnsureVisible(ctx, loc); err != nil {
		return err
	}
	m.highlightElement(ctx, loc)

	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.driver.Click(opCtx, loc); err != nil {
		return fmt.Errorf("error clicking element '%s' on page %s: %w", loc, m.GetURL(ctx), err)
	}

	log.Debugf("Successfully clicked element '%s'.", loc)
	m.pause(ctx)
	return nil
}
