package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
)

// unoconvStrategy is the last-ditch fallback for office formats on hosts
// where direct soffice invocation misbehaves.
type unoconvStrategy struct {
	runner  Runner
	locator Locator
}

func NewUnoconv(runner Runner, locator Locator) Strategy {
	return &unoconvStrategy{runner: runner, locator: locator}
}

func (s *unoconvStrategy) Name() string { return "unoconv" }

func (s *unoconvStrategy) Convert(ctx context.Context, input, _, outPath string) error {
	bin, err := s.locator.Find("unoconv")
	if err != nil {
		return err
	}
	if _, stderr, err := s.runner.Run(ctx, bin, "-f", "pdf", "-o", outPath, input); err != nil {
		return fmt.Errorf("unoconv: %w: %s", err, bytes.TrimSpace(stderr))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("unoconv produced no output: %w", err)
	}
	return nil
}
