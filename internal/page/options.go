package page

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultHighlight = true
)

// Options are the recognised parameters of a chain, parsed.
type Options struct {
	URL               string
	WaitTitleContains string
	Timeout           time.Duration
	Highlight         bool
	AnimationDelay    time.Duration
	// ScreenshotDir receives failure screenshots. "-" disables them.
	ScreenshotDir string
}

func parseOptions(c Chain) (Options, error) {
	opts := Options{
		URL:               c.String(ParamURL),
		WaitTitleContains: c.String(ParamWaitTitleContains),
		Timeout:           DefaultTimeout,
		Highlight:         DefaultHighlight,
		ScreenshotDir:     c.String(ParamScreenshotDir),
	}

	var err error
	if v, ok := c.Value(ParamTimeout); ok {
		if opts.Timeout, err = seconds(v); err != nil {
			return opts, fmt.Errorf("%w: %s: %v", ErrInvalidOption, ParamTimeout, err)
		}
		if opts.Timeout <= 0 {
			return opts, fmt.Errorf("%w: %s must be positive", ErrInvalidOption, ParamTimeout)
		}
	}
	if v, ok := c.Value(ParamHighlight); ok {
		if opts.Highlight, err = boolean(v); err != nil {
			return opts, fmt.Errorf("%w: %s: %v", ErrInvalidOption, ParamHighlight, err)
		}
	}
	if v, ok := c.Value(ParamAnimationDelay); ok {
		if opts.AnimationDelay, err = seconds(v); err != nil {
			return opts, fmt.Errorf("%w: %s: %v", ErrInvalidOption, ParamAnimationDelay, err)
		}
		if opts.AnimationDelay < 0 {
			return opts, fmt.Errorf("%w: %s must not be negative", ErrInvalidOption, ParamAnimationDelay)
		}
	}
	return opts, nil
}

// seconds accepts numbers of seconds, durations and strings of either form.
func seconds(v any) (time.Duration, error) {
	switch n := v.(type) {
	case time.Duration:
		return n, nil
	case int:
		return time.Duration(n) * time.Second, nil
	case int64:
		return time.Duration(n) * time.Second, nil
	case uint64:
		return time.Duration(n) * time.Second, nil
	case float64:
		return time.Duration(n * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(n)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
		return time.ParseDuration(s)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func boolean(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	default:
		return false, fmt.Errorf("unsupported type %T", v)
	}
}
