package method

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const pollInterval = 100 * time.Millisecond

// GetURL returns the current URL, or an empty string when the driver cannot tell.
func (m *Method) GetURL(ctx context.Context) string {
	currentURL, err := m.driver.Location(ctx)
	if err != nil {
		log.Debugf("Error getting current URL: %v", err)
		return ""
	}
	return currentURL
}

func (m *Method) Navigate(ctx context.Context, url string) error {
	log.Debugf("pre_navigate: %s", url)
	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.driver.Navigate(opCtx, url)
}

// WaitTitleContains polls the page title until it contains substr or the timeout
// elapses. It returns the last title seen.
func (m *Method) WaitTitleContains(ctx context.Context, substr string) (string, bool) {
	log.Debugf("Wait for title to contain '%s'", substr)
	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var title string
	for {
		current, err := m.driver.Title(opCtx)
		if err == nil {
			title = current
			if strings.Contains(title, substr) {
				return title, true
			}
		}
		select {
		case <-opCtx.Done():
			log.Debugf("Page %s title = '%s'", m.GetURL(ctx), title)
			return title, false
		case <-time.After(pollInterval):
		}
	}
}
