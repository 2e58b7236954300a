package convert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache holds finished PDFs keyed by source identity. A key changes whenever
// the document row or the underlying file does, so stale entries are simply
// never hit again and age out through Sweep.
type Cache struct {
	dir    string
	logger *slog.Logger
}

func NewCache(dir string, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// Key derives the cache key from the blob key, the document row's update
// time and the file's modification time.
func Key(blobKey string, updatedAt, modTime time.Time) string {
	sum := sha256.Sum256([]byte(
		blobKey + "|" + updatedAt.UTC().Format(time.RFC3339Nano) + "|" + modTime.UTC().Format(time.RFC3339Nano),
	))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) pathFor(key string) string {
	return filepath.Join(c.dir, key+".pdf")
}

// Lookup returns the cached path when a plausible PDF is present. Undersized
// leftovers are ignored.
func (c *Cache) Lookup(key string) (string, bool) {
	path := c.pathFor(key)
	fi, err := os.Stat(path)
	if err != nil || fi.Size() < minPDFSize {
		return "", false
	}
	return path, true
}

// Store copies a finished conversion into the cache. The write goes through
// a sibling temp file and a rename so readers never observe a partial PDF.
func (c *Cache) Store(key, srcPath string) (string, error) {
	dst := c.pathFor(key)
	tmp := dst + ".tmp"

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open conversion result: %w", err)
	}
	defer src.Close()

	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create cache entry: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write cache entry: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize cache entry: %w", err)
	}
	return dst, nil
}

// Sweep deletes cache entries older than maxAge and returns how many were
// removed. Temp files orphaned by an interrupted Store are swept too.
func (c *Cache) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".pdf") && !strings.HasSuffix(name, ".tmp")) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			c.logger.Warn("failed to remove cache entry", "entry", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
