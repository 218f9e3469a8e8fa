package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/luispater/pagechain/internal/browser"
	"github.com/luispater/pagechain/internal/config"
	"github.com/luispater/pagechain/internal/page"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUnknownChain = errors.New("unknown chain")
	ErrAborted      = errors.New("chain run aborted")
)

// ExpectationError means a page reached by a chain did not look as declared.
type ExpectationError struct {
	Chain string
	Step  int
	Field string
	Want  string
	Got   string
}

func (e *ExpectationError) Error() string {
	where := "final page"
	if e.Step > 0 {
		where = fmt.Sprintf("step %d", e.Step)
	}
	return fmt.Sprintf("chain %s, %s: expected %s '%s', got '%s'", e.Chain, where, e.Field, e.Want, e.Got)
}

// RunnerResult describes a finished chain run.
type RunnerResult struct {
	Chain    string
	Pages    []page.Key
	Final    page.Key
	URL      string
	Title    string
	Params   map[string]string
	Duration time.Duration
}

// RunnerManager loads chain files and runs them against a driver.
type RunnerManager struct {
	appConfig *config.AppConfig
	registry  *page.Registry
	debug     bool
	abort     atomic.Bool

	mu      sync.RWMutex
	configs map[string]Configuration
	files   map[string]string
}

func NewRunnerManager(appConfig *config.AppConfig, registry *page.Registry, debug bool) (*RunnerManager, error) {
	runner := &RunnerManager{
		appConfig: appConfig,
		registry:  registry,
		debug:     debug,
		configs:   make(map[string]Configuration),
		files:     make(map[string]string),
	}
	err := runner.LoadConfigurations()
	if err != nil {
		return nil, err
	}
	return runner, nil
}

// Abort stops the running chain before its next advance.
func (rm *RunnerManager) Abort() {
	rm.abort.Store(true)
}

// LoadConfiguration reads one chain file and registers it under name, or under the
// name declared inside the file.
func (rm *RunnerManager) LoadConfiguration(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg Configuration
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	if cfg.Start == "" {
		return fmt.Errorf("chain %s has no start page", cfg.Name)
	}
	if _, err = rm.registry.Resolve(page.Key(cfg.Start)); err != nil {
		return fmt.Errorf("chain %s: %w", cfg.Name, err)
	}

	rm.mu.Lock()
	rm.configs[cfg.Name] = cfg
	rm.files[cfg.Name] = path
	rm.mu.Unlock()
	return nil
}

// LoadConfigurations scans all yaml files in the runner directory and calls LoadConfiguration method by filename
func (rm *RunnerManager) LoadConfigurations() error {
	dir := rm.appConfig.Runner.Dir
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		log.Debugf("Chain directory %s does not exist, no chains loaded", dir)
		return nil
	}

	yamlFiles, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to scan yaml files: %v", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to scan yml files: %v", err)
	}
	allFiles := append(yamlFiles, ymlFiles...)

	for _, filePath := range allFiles {
		fileName := filepath.Base(filePath)
		name := strings.TrimSuffix(fileName, filepath.Ext(fileName))

		log.Debugf("Loading chain file: %s -> %s", name, filePath)
		err = rm.LoadConfiguration(name, filePath)
		if err != nil {
			return fmt.Errorf("failed to load chain file %s: %v", filePath, err)
		}
	}

	log.Debugf("Total loaded %d chain files", len(allFiles))
	return nil
}

// Names returns the loaded chain names in sorted order.
func (rm *RunnerManager) Names() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	names := make([]string, 0, len(rm.configs))
	for name := range rm.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (rm *RunnerManager) Configuration(name string) (Configuration, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	cfg, ok := rm.configs[name]
	return cfg, ok
}

// Run opens the start page of the named chain on driver and performs its steps.
// extra overrides the params of the chain file. The result is returned with the
// error when the chain fails part way.
func (rm *RunnerManager) Run(ctx context.Context, name string, driver browser.Driver, extra page.Params) (*RunnerResult, error) {
	if rm.debug {
		if err := rm.LoadConfigurations(); err != nil {
			log.Debugf("Reload chain files failed: %v", err)
		}
	}
	cfg, ok := rm.Configuration(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChain, name)
	}
	rm.abort.Store(false)

	started := time.Now()
	result := &RunnerResult{Chain: cfg.Name}
	defer func() {
		result.Duration = time.Since(started)
	}()

	params := page.Params(rm.appConfig.PageDefaults())
	for k, v := range expand(cfg.Params) {
		params[k] = v
	}
	if cfg.URL != "" {
		params[page.ParamURL] = rm.resolveURL(os.ExpandEnv(cfg.URL))
	}
	if cfg.WaitTitleContains != "" {
		params[page.ParamWaitTitleContains] = cfg.WaitTitleContains
	}
	for k, v := range extra {
		params[k] = v
	}
	params[page.ParamDriver] = driver

	log.Infof("Running chain %s from %s", cfg.Name, cfg.Start)
	current, err := rm.registry.Open(ctx, page.Key(cfg.Start), params)
	if err != nil {
		return result, fmt.Errorf("chain %s: open %s: %w", cfg.Name, cfg.Start, err)
	}
	rm.record(ctx, result, current, driver)

	for i, step := range cfg.Steps {
		if rm.abort.Load() {
			log.Debugf("Get abort signal, stop chain %s", cfg.Name)
			return result, fmt.Errorf("chain %s: %w", cfg.Name, ErrAborted)
		}
		if step.Description != "" {
			log.Debugf("chain %s step %d: %s", cfg.Name, i+1, step.Description)
		}

		next, errAdvance := current.Advance(ctx, expand(step.Params))
		if errAdvance != nil {
			return result, fmt.Errorf("chain %s step %d from %s: %w", cfg.Name, i+1, current.Key(), errAdvance)
		}
		current = next
		rm.record(ctx, result, current, driver)

		if err = rm.check(ctx, cfg.Name, i+1, step.Expect, current, driver); err != nil {
			return result, err
		}
	}

	if err = rm.check(ctx, cfg.Name, 0, cfg.Expect, current, driver); err != nil {
		return result, err
	}
	log.Infof("Chain %s finished on %s", cfg.Name, result.Final)
	return result, nil
}

func (rm *RunnerManager) record(ctx context.Context, result *RunnerResult, p page.Page, driver browser.Driver) {
	result.Pages = append(result.Pages, p.Key())
	result.Final = p.Key()
	result.URL, _ = driver.Location(ctx)
	result.Title, _ = driver.Title(ctx)

	chain := p.Chain()
	result.Params = make(map[string]string)
	for _, k := range chain.Keys() {
		if k == page.ParamDriver {
			continue
		}
		result.Params[k] = rm.reveal(k, chain.String(k))
	}
}

// resolveURL makes paths relative to the fixture server absolute.
func (rm *RunnerManager) resolveURL(url string) string {
	if strings.HasPrefix(url, "/") {
		return rm.appConfig.FixtureURL() + url
	}
	return url
}

// expand replaces ${VAR} and $VAR in string values with the environment.
func expand(params map[string]any) page.Params {
	if params == nil {
		return nil
	}
	expanded := make(page.Params, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			v = os.ExpandEnv(s)
		}
		expanded[k] = v
	}
	return expanded
}

func (rm *RunnerManager) check(ctx context.Context, chain string, step int, expect *ConfigurationExpect, p page.Page, driver browser.Driver) error {
	if expect == nil {
		return nil
	}
	if expect.Page != "" && page.Key(expect.Page) != p.Key() {
		return &ExpectationError{Chain: chain, Step: step, Field: "page", Want: expect.Page, Got: string(p.Key())}
	}
	if expect.TitleContains != "" {
		title, err := driver.Title(ctx)
		if err != nil {
			return fmt.Errorf("chain %s: read title: %w", chain, err)
		}
		if !strings.Contains(title, expect.TitleContains) {
			return &ExpectationError{Chain: chain, Step: step, Field: "title containing", Want: expect.TitleContains, Got: title}
		}
	}
	if expect.URLContains != "" {
		url, err := driver.Location(ctx)
		if err != nil {
			return fmt.Errorf("chain %s: read url: %w", chain, err)
		}
		if !strings.Contains(url, expect.URLContains) {
			return &ExpectationError{Chain: chain, Step: step, Field: "url containing", Want: expect.URLContains, Got: url}
		}
	}
	keys := make([]string, 0, len(expect.Chain))
	for k := range expect.Chain {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		want := os.ExpandEnv(expect.Chain[k])
		if got := p.Chain().String(k); got != want {
			return &ExpectationError{Chain: chain, Step: step, Field: "chain " + k, Want: rm.reveal(k, want), Got: rm.reveal(k, got)}
		}
	}
	return nil
}
