package convert

import (
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var textPage = template.Must(template.New("text").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body { font-family: monospace; font-size: 11px; white-space: pre-wrap; word-wrap: break-word; }
</style></head><body>{{.}}</body></html>`))

var tablePage = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
table { border-collapse: collapse; font-family: sans-serif; font-size: 10px; }
td, th { border: 1px solid #999; padding: 2px 6px; }
tr:first-child { background: #eee; font-weight: bold; }
</style></head><body><table>
{{range .}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table></body></html>`))

// htmlPrintStrategy renders plain text and CSV to an HTML intermediate and
// prints it with headless Chromium.
type htmlPrintStrategy struct {
	printer *chromePrinter
}

func NewHTMLPrint(locator Locator) Strategy {
	return &htmlPrintStrategy{printer: &chromePrinter{locator: locator}}
}

func (s *htmlPrintStrategy) Name() string { return "html-print" }

func (s *htmlPrintStrategy) Convert(ctx context.Context, input, tempDir, outPath string) error {
	htmlFile := filepath.Join(tempDir, "render.html")
	f, err := os.Create(htmlFile)
	if err != nil {
		return fmt.Errorf("create html intermediate: %w", err)
	}

	if strings.EqualFold(filepath.Ext(input), ".csv") {
		err = renderCSV(f, input)
	} else {
		err = renderText(f, input)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return s.printer.print(ctx, htmlFile, outPath)
}

func renderText(w io.Writer, input string) error {
	body, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read text input: %w", err)
	}
	return textPage.Execute(w, string(body))
}

func renderCSV(w io.Writer, input string) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open csv input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	return tablePage.Execute(w, rows)
}
