// Package pages builds the process registry of every known page type.
package pages

import (
	"fmt"

	"github.com/luispater/pagechain/internal/page"
	"github.com/luispater/pagechain/internal/pages/demo"
	log "github.com/sirupsen/logrus"
)

// NewRegistry registers the built-in and demo pages and validates their successors.
func NewRegistry() (*page.Registry, error) {
	r := page.NewRegistry()
	if err := r.Register(page.TitleCheckerPage()); err != nil {
		return nil, err
	}
	if err := r.RegisterAll(demo.Descriptors()...); err != nil {
		return nil, fmt.Errorf("register demo pages: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	log.Debugf("registered %d pages", len(r.Keys()))
	return r, nil
}
