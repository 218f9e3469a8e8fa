package method

import (
	"time"

	"github.com/luispater/pagechain/internal/browser"
)

// Method locates elements on the page behind a driver and acts on them. Every wait is
// bounded by timeout.
type Method struct {
	driver    browser.Driver
	timeout   time.Duration
	highlight bool
	delay     time.Duration
}

func NewMethod(driver browser.Driver, timeout time.Duration, highlight bool) *Method {
	return &Method{
		driver:    driver,
		timeout:   timeout,
		highlight: highlight,
	}
}

func (m *Method) Driver() browser.Driver {
	return m.driver
}

func (m *Method) Timeout() time.Duration {
	return m.timeout
}

// SetDelay sets the pause after each element access. It is a demo and debugging aid.
func (m *Method) SetDelay(delay time.Duration) {
	m.delay = delay
}
