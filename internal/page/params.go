package page

import (
	"fmt"
	"sort"

	"github.com/luispater/pagechain/internal/browser"
)

// Recognised chain parameters.
const (
	ParamDriver            = "driver"
	ParamURL               = "url"
	ParamWaitTitleContains = "wait_title_contains"
	ParamTimeout           = "timeout"
	ParamHighlight         = "highlight"
	ParamAnimationDelay    = "animation_delay"
	ParamScreenshotDir     = "screenshot_dir"
)

// oneTime parameters only apply to the page that starts a chain.
var oneTime = []string{ParamURL, ParamWaitTitleContains}

// Params are named values fed into a chain.
type Params map[string]any

// Chain is the context a chain of pages accumulates. A Chain is never modified in
// place, so every page keeps the snapshot it was built with.
type Chain struct {
	values Params
}

func NewChain(params Params) Chain {
	return Chain{}.Merge(params)
}

// Merge returns a copy of c with extra applied. Existing keys are overwritten.
func (c Chain) Merge(extra Params) Chain {
	values := make(Params, len(c.values)+len(extra))
	for k, v := range c.values {
		values[k] = v
	}
	for k, v := range extra {
		values[k] = v
	}
	return Chain{values: values}
}

// Without returns a copy of c without keys.
func (c Chain) Without(keys ...string) Chain {
	values := make(Params, len(c.values))
	for k, v := range c.values {
		values[k] = v
	}
	for _, k := range keys {
		delete(values, k)
	}
	return Chain{values: values}
}

func (c Chain) withoutOneTime() Chain {
	return c.Without(oneTime...)
}

func (c Chain) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c Chain) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// String returns the value of key formatted as a string, or "" when absent.
func (c Chain) String(key string) string {
	v, ok := c.values[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Driver returns the driver handle of the chain, or nil.
func (c Chain) Driver() browser.Driver {
	d, _ := c.values[ParamDriver].(browser.Driver)
	return d
}

// Keys returns the parameter names in sorted order.
func (c Chain) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Params returns a copy of the chain values.
func (c Chain) Params() Params {
	params := make(Params, len(c.values))
	for k, v := range c.values {
		params[k] = v
	}
	return params
}
