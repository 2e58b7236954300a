package convert

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	mimeDoc  = "application/msword"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXls  = "application/vnd.ms-excel"
	mimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePpt  = "application/vnd.ms-powerpoint"
	mimePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeOdt  = "application/vnd.oasis.opendocument.text"
	mimeOds  = "application/vnd.oasis.opendocument.spreadsheet"
	mimeOdp  = "application/vnd.oasis.opendocument.presentation"
	mimeRtf  = "application/rtf"
	mimeCsv  = "text/csv"
	mimeTxt  = "text/plain"
	mimePdf  = "application/pdf"
)

var extMimes = map[string]string{
	".doc":  mimeDoc,
	".docx": mimeDocx,
	".xls":  mimeXls,
	".xlsx": mimeXlsx,
	".ppt":  mimePpt,
	".pptx": mimePptx,
	".odt":  mimeOdt,
	".ods":  mimeOds,
	".odp":  mimeOdp,
	".rtf":  mimeRtf,
	".csv":  mimeCsv,
	".txt":  mimeTxt,
	".md":   "text/markdown",
	".pdf":  mimePdf,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".html": "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// DetectMime sniffs the file content and falls back to the extension when
// sniffing is inconclusive. Office formats are zip containers, so a zip
// result with a known extension means the extension wins.
func DetectMime(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for sniffing: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read for sniffing: %w", err)
	}

	return DetectMimeBytes(buf[:n], path), nil
}

// DetectMimeBytes classifies content from its leading bytes. Callers that
// already hold the head of the stream, such as upload handlers, use this
// directly.
func DetectMimeBytes(head []byte, filename string) string {
	detected := baseMime(http.DetectContentType(head))
	if !inconclusive(detected) {
		return detected
	}
	if byExt, ok := extMimes[strings.ToLower(filepath.Ext(filename))]; ok {
		return byExt
	}
	return detected
}

func inconclusive(mime string) bool {
	switch mime {
	case "application/zip", "application/octet-stream", "text/plain":
		return true
	}
	return false
}

// baseMime strips parameters such as "; charset=utf-8".
func baseMime(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.TrimSpace(base)
}

// Viewable types are streamed to the client as-is.
func Viewable(mime string) bool {
	if strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "video/") {
		return true
	}
	switch mime {
	case mimePdf, "text/html", "text/css", "text/javascript", "application/javascript",
		"application/json", "application/xml", "text/xml":
		return true
	}
	return false
}

type kind int

const (
	kindUnsupported kind = iota
	kindText
	kindSpreadsheet
	kindOffice
)

func classify(mime string) kind {
	switch mime {
	case mimeTxt, mimeCsv, "text/markdown":
		return kindText
	case mimeXls, mimeXlsx, mimeOds:
		return kindSpreadsheet
	case mimeDoc, mimeDocx, mimePpt, mimePptx, mimeOdt, mimeOdp, mimeRtf:
		return kindOffice
	}
	return kindUnsupported
}

// Convertible reports whether a document of this type can be rendered to PDF.
func Convertible(mime string) bool {
	return classify(mime) != kindUnsupported
}
