package method

import (
	"context"
	"fmt"

	"github.com/luispater/pagechain/internal/browser"
)

func (m *Method) Text(ctx context.Context, loc browser.Locator) (string, error) {
	if err := m.EnsureVisible(ctx, loc); err != nil {
		return "", err
	}

	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	text, err := m.driver.Text(opCtx, loc)
	if err != nil {
		return "", fmt.Errorf("error getting text from element '%s': %w", loc, err)
	}
	return text, nil
}
