package convert

import "context"

// Strategy is one way of turning an input file into a PDF. Convert writes
// the result to outPath and may use tempDir for scratch files.
type Strategy interface {
	Name() string
	Convert(ctx context.Context, input, tempDir, outPath string) error
}
