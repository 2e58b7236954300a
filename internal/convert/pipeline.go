package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

// Request identifies one document payload to render. Key is the stable blob
// key; LocalPath is where the payload currently sits on disk.
type Request struct {
	Key       string
	LocalPath string
	MimeType  string
	UpdatedAt time.Time
}

// Pipeline renders documents for inline display. Viewable types pass through
// untouched; convertible types go through the strategy chains with a shared
// PDF cache in front.
type Pipeline struct {
	cache   *Cache
	temp    *TempManager
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group

	text        []Strategy
	spreadsheet []Strategy
	office      []Strategy
}

func NewPipeline(cache *Cache, temp *TempManager, runner Runner, locator Locator, timeout time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cache:   cache,
		temp:    temp,
		timeout: timeout,
		logger:  logger,
		text: []Strategy{
			NewHTMLPrint(locator),
			NewLibreOffice(runner, locator),
		},
		spreadsheet: []Strategy{
			NewLibreOfficeCalc(runner, locator),
			NewExcelPrint(locator),
			NewLibreOffice(runner, locator),
		},
		office: []Strategy{
			NewLibreOffice(runner, locator),
			NewUnoconv(runner, locator),
		},
	}
}

// Render returns a file to serve for the request. Concurrent requests for
// the same cache key share one conversion.
func (p *Pipeline) Render(ctx context.Context, req Request) (Output, error) {
	mime := baseMime(req.MimeType)
	if Viewable(mime) {
		return Output{Path: req.LocalPath, ContentType: mime}, nil
	}
	chain := p.chainFor(mime)
	if chain == nil {
		return Output{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	fi, err := os.Stat(req.LocalPath)
	if err != nil {
		return Output{}, fmt.Errorf("stat input: %w", err)
	}
	key := Key(req.Key, req.UpdatedAt, fi.ModTime())

	if path, ok := p.cache.Lookup(key); ok {
		return Output{Path: path, ContentType: "application/pdf"}, nil
	}

	result, err, _ := p.group.Do(key, func() (any, error) {
		// A concurrent conversion may have landed while this call waited.
		if path, ok := p.cache.Lookup(key); ok {
			return path, nil
		}
		return p.convert(ctx, chain, req.LocalPath, key)
	})
	if err != nil {
		return Output{}, err
	}
	return Output{Path: result.(string), ContentType: "application/pdf"}, nil
}

func (p *Pipeline) chainFor(mime string) []Strategy {
	switch classify(mime) {
	case kindText:
		return p.text
	case kindSpreadsheet:
		return p.spreadsheet
	case kindOffice:
		return p.office
	}
	return nil
}

func (p *Pipeline) convert(ctx context.Context, chain []Strategy, input, key string) (string, error) {
	dir, cleanup, err := p.temp.Acquire()
	if err != nil {
		return "", err
	}
	defer cleanup()

	outPath := filepath.Join(dir, "output.pdf")
	for _, strategy := range chain {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := strategy.Convert(attemptCtx, input, dir, outPath)
		cancel()
		if err != nil {
			p.logger.Warn("conversion attempt failed",
				"strategy", strategy.Name(),
				"input", filepath.Base(input),
				"error", err,
			)
			os.Remove(outPath)
			continue
		}

		fi, err := os.Stat(outPath)
		if err != nil || fi.Size() < minPDFSize {
			p.logger.Warn("conversion produced unusable output",
				"strategy", strategy.Name(),
				"input", filepath.Base(input),
			)
			os.Remove(outPath)
			continue
		}

		p.logger.Info("document converted",
			"strategy", strategy.Name(),
			"input", filepath.Base(input),
			"size", fi.Size(),
		)
		return p.cache.Store(key, outPath)
	}
	return "", fmt.Errorf("%w: all strategies exhausted", ErrConversionFailed)
}
