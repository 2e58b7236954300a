package convert

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

var sheetPage = template.Must(template.New("sheets").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
h2 { font-family: sans-serif; font-size: 12px; page-break-before: always; }
h2:first-of-type { page-break-before: avoid; }
table { border-collapse: collapse; font-family: sans-serif; font-size: 10px; }
td { border: 1px solid #999; padding: 2px 6px; }
</style></head><body>
{{range .}}<h2>{{.Name}}</h2><table>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{end}}</body></html>`))

type sheetData struct {
	Name string
	Rows [][]string
}

// excelPrintStrategy reads a workbook cell-by-cell and prints an HTML
// rendition. It only handles xlsx containers, so it sits between the two
// LibreOffice attempts in the spreadsheet chain.
type excelPrintStrategy struct {
	printer *chromePrinter
}

func NewExcelPrint(locator Locator) Strategy {
	return &excelPrintStrategy{printer: &chromePrinter{locator: locator}}
}

func (s *excelPrintStrategy) Name() string { return "excel-print" }

func (s *excelPrintStrategy) Convert(ctx context.Context, input, tempDir, outPath string) error {
	wb, err := excelize.OpenFile(input)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	var sheets []sheetData
	for _, name := range wb.GetSheetList() {
		rows, err := wb.GetRows(name)
		if err != nil {
			return fmt.Errorf("read sheet %s: %w", name, err)
		}
		sheets = append(sheets, sheetData{Name: name, Rows: rows})
	}
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s has no sheets", filepath.Base(input))
	}

	htmlFile := filepath.Join(tempDir, "workbook.html")
	f, err := os.Create(htmlFile)
	if err != nil {
		return fmt.Errorf("create html intermediate: %w", err)
	}
	err = sheetPage.Execute(f, sheets)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("render workbook html: %w", err)
	}
	return s.printer.print(ctx, htmlFile, outPath)
}
