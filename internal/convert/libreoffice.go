package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sofficeStrategy drives LibreOffice in headless mode. The calc variant pins
// a scratch user profile so concurrent spreadsheet exports do not fight over
// the shared profile lock, and asks for the Calc export filter explicitly.
type sofficeStrategy struct {
	runner  Runner
	locator Locator
	calc    bool
}

func NewLibreOffice(runner Runner, locator Locator) Strategy {
	return &sofficeStrategy{runner: runner, locator: locator}
}

func NewLibreOfficeCalc(runner Runner, locator Locator) Strategy {
	return &sofficeStrategy{runner: runner, locator: locator, calc: true}
}

func (s *sofficeStrategy) Name() string {
	if s.calc {
		return "libreoffice-calc"
	}
	return "libreoffice"
}

func (s *sofficeStrategy) Convert(ctx context.Context, input, tempDir, outPath string) error {
	bin, err := s.locator.Find("soffice")
	if err != nil {
		return err
	}

	outDir := filepath.Join(tempDir, "soffice-out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create soffice outdir: %w", err)
	}

	args := []string{"--headless", "--norestore", "--nolockcheck"}
	if s.calc {
		profile := filepath.Join(tempDir, "soffice-profile")
		args = append(args,
			"-env:UserInstallation=file://"+profile,
			"--calc",
			"--convert-to", "pdf:calc_pdf_Export",
		)
	} else {
		args = append(args, "--convert-to", "pdf")
	}
	args = append(args, "--outdir", outDir, input)

	if _, stderr, err := s.runner.Run(ctx, bin, args...); err != nil {
		return fmt.Errorf("soffice: %w: %s", err, bytes.TrimSpace(stderr))
	}

	produced := filepath.Join(outDir, pdfName(input))
	if _, err := os.Stat(produced); err != nil {
		// soffice occasionally normalizes the output name; take whatever
		// PDF it left behind.
		matches, _ := filepath.Glob(filepath.Join(outDir, "*.pdf"))
		if len(matches) == 0 {
			return fmt.Errorf("soffice produced no output for %s", filepath.Base(input))
		}
		produced = matches[0]
	}
	return os.Rename(produced, outPath)
}

func pdfName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf"
}
