package convert

import (
	"fmt"
	"os/exec"
)

// Locator resolves tool names to executable paths.
type Locator interface {
	Find(tool string) (string, error)
}

// PathLocator looks tools up on PATH, with optional per-tool overrides from
// configuration.
type PathLocator struct {
	Overrides map[string]string
}

func (l *PathLocator) Find(tool string) (string, error) {
	if l.Overrides != nil {
		if path := l.Overrides[tool]; path != "" {
			return path, nil
		}
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolMissing, tool)
	}
	return path, nil
}

// findChromium probes the common chromium binary names.
func findChromium(l Locator) (string, error) {
	if path, err := l.Find("chromium-browser"); err == nil {
		return path, nil
	}
	return l.Find("chromium")
}
