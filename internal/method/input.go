package method

import (
	"context"
	"fmt"

	"github.com/luispater/pagechain/internal/browser"
	log "github.com/sirupsen/logrus"
)

// Fill replaces the content of an input element with text.
func (m *Method) Fill(ctx context.Context, loc browser.Locator, text string) error {
	if err := m.EnsureVisible(ctx, loc); err != nil {
		return err
	}
	m.highlightElement(ctx, loc)

	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	log.Debugf("Element '%s' found and is visible. Attempting to input...", loc)
	if err := m.driver.Clear(opCtx, loc); err != nil {
		return fmt.Errorf("error clearing element '%s': %w", loc, err)
	}
	if err := m.driver.SendKeys(opCtx, loc, text); err != nil {
		return fmt.Errorf("error input element '%s': %w", loc, err)
	}
	log.Debugf("Successfully input element '%s'.", loc)
	m.pause(ctx)
	return nil
}
