package convert

import "errors"

// Converted files smaller than this are truncated or empty exports, not PDFs
// worth serving.
const minPDFSize = 1000

var (
	ErrUnsupportedType  = errors.New("unsupported document type")
	ErrConversionFailed = errors.New("conversion failed")
	ErrToolMissing      = errors.New("conversion tool not available")
)

// Output points at a file ready to serve inline.
type Output struct {
	Path        string
	ContentType string
}
