package convert

import (
	"fmt"
	"os"
)

// TempManager hands out scratch directories, one per conversion, so a failed
// attempt never leaks files into the next one.
type TempManager struct {
	base string
}

func NewTempManager(base string) (*TempManager, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create temp base: %w", err)
	}
	return &TempManager{base: base}, nil
}

// Acquire returns a fresh directory and a cleanup that removes it with
// everything inside.
func (m *TempManager) Acquire() (string, func(), error) {
	dir, err := os.MkdirTemp(m.base, "convert-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}
