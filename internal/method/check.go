package method

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/luispater/pagechain/internal/browser"
	log "github.com/sirupsen/logrus"
)

// ErrNoneVisible is returned by WaitFirst when no candidate became visible in time.
var ErrNoneVisible = errors.New("none of the elements became visible")

func (m *Method) IsVisible(ctx context.Context, loc browser.Locator) bool {
	visible, err := m.driver.IsVisible(ctx, loc)
	if err != nil {
		log.Debugf("Error checking visibility of element '%s': %v", loc, err)
		return false
	}
	return visible
}

// WaitLoaded waits for every locator to be visible under a single timeout and returns
// the sorted names of the ones that are not.
func (m *Method) WaitLoaded(ctx context.Context, locators map[string]browser.Locator) []string {
	names := make([]string, 0, len(locators))
	for name := range locators {
		names = append(names, name)
	}
	sort.Strings(names)

	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var missing []string
	for _, name := range names {
		loc := locators[name]
		if opCtx.Err() == nil {
			if err := m.driver.WaitVisible(opCtx, loc); err == nil {
				continue
			}
		} else if m.IsVisible(ctx, loc) {
			continue
		}
		log.Debugf("Page %s did not contain %s", m.GetURL(ctx), loc)
		missing = append(missing, name)
	}
	return missing
}

// WaitFirst polls the candidates until one of them is visible and returns its index.
// It is how a page resolves a runtime branch into a single outcome.
func (m *Method) WaitFirst(ctx context.Context, candidates ...browser.Locator) (int, error) {
	if len(candidates) == 0 {
		return -1, fmt.Errorf("no candidates to wait for")
	}
	opCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	for {
		for i, loc := range candidates {
			if m.IsVisible(opCtx, loc) {
				log.Debugf("element %s appeared first", loc)
				return i, nil
			}
		}
		select {
		case <-opCtx.Done():
			return -1, fmt.Errorf("%w on page %s within %v: %v", ErrNoneVisible, m.GetURL(ctx), m.timeout, candidates)
		case <-time.After(pollInterval):
		}
	}
}
