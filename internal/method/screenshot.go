package method

import (
	"context"
	"os"
)

// SaveScreenshot writes a PNG of the current page into dir (the OS temp dir when
// empty) and returns the file path.
func (m *Method) SaveScreenshot(ctx context.Context, dir string) (string, error) {
	data, err := m.driver.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = os.TempDir()
	}
	file, err := os.CreateTemp(dir, "pagechain-*.png")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err = file.Write(data); err != nil {
		return "", err
	}
	return file.Name(), nil
}
