package page

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoDriver          = errors.New("chain has no driver")
	ErrTerminalPage      = errors.New("page has no successor")
	ErrUnknownElement    = errors.New("no page element with this name")
	ErrInvalidOption     = errors.New("invalid page option")
	ErrInvalidDescriptor = errors.New("invalid page descriptor")
)

// PageNotLoadedError means the declared elements of a page were not all visible
// within the timeout.
type PageNotLoadedError struct {
	Page       Key
	URL        string
	Missing    []string
	Screenshot string
}

func (e *PageNotLoadedError) Error() string {
	msg := fmt.Sprintf("page %s not loaded at %s: elements not visible: %s", e.Page, e.URL, strings.Join(e.Missing, ", "))
	if e.Screenshot != "" {
		msg += " (screenshot " + e.Screenshot + ")"
	}
	return msg
}

// TitleMismatchError means the page title never contained the expected substring.
type TitleMismatchError struct {
	Page       Key
	URL        string
	Expected   string
	Title      string
	Screenshot string
}

func (e *TitleMismatchError) Error() string {
	msg := fmt.Sprintf("page %s at %s: expected page title containing '%s' not found, title is '%s'", e.Page, e.URL, e.Expected, e.Title)
	if e.Screenshot != "" {
		msg += " (screenshot " + e.Screenshot + ")"
	}
	return msg
}

// UnknownPageError means a page key was never registered.
type UnknownPageError struct {
	Key Key
}

func (e *UnknownPageError) Error() string {
	return fmt.Sprintf("unknown page %q", e.Key)
}

// ActionFailureError wraps the failure of the UI action a page performs to advance.
// No successor page is constructed when it occurs.
type ActionFailureError struct {
	Page Key
	URL  string
	Err  error
}

func (e *ActionFailureError) Error() string {
	return fmt.Sprintf("action of page %s failed at %s: %v", e.Page, e.URL, e.Err)
}

func (e *ActionFailureError) Unwrap() error {
	return e.Err
}

// SuccessorMismatchError means a caller or constructor disagreed with the successor
// type declared in the registry.
type SuccessorMismatchError struct {
	From Key
	Want string
	Got  string
}

func (e *SuccessorMismatchError) Error() string {
	return fmt.Sprintf("page %s advances to %s, not %s", e.From, e.Want, e.Got)
}

// DuplicatePageError means a key was registered twice with different constructors.
type DuplicatePageError struct {
	Key Key
}

func (e *DuplicatePageError) Error() string {
	return fmt.Sprintf("page %q already registered with a different constructor", e.Key)
}
