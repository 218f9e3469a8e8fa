package method

import (
	"context"
	"time"
)

func (m *Method) pause(ctx context.Context) {
	if m.delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(m.delay):
	}
}
