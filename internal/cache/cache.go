// Package cache stores PDF extraction results keyed by a fingerprint of the
// file content and the processing parameters, so re-ingesting unchanged
// documents skips the expensive parse.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/regwatch/tariffqa/internal/extract"
)

// DefaultSize is the number of extractions kept in memory.
const DefaultSize = 128

// Params are the processing knobs baked into each fingerprint. Changing any
// of them invalidates previously cached extractions.
type Params struct {
	ChunkSize    int
	ChunkOverlap int
}

// Fingerprint derives the cache key for one document: the BLAKE2b-256 digest
// of the file bytes, the source identity, and the processing parameters.
// A changed file or changed parameters always yields a new key.
func Fingerprint(path string, params Params) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create hasher: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	fmt.Fprintf(h, "|%s|%d|%d", extract.SourceName(path), params.ChunkSize, params.ChunkOverlap)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BuildFunc produces the extraction for a key on a cache miss.
type BuildFunc func(ctx context.Context) (*extract.Extraction, error)

// Cache is a two-tier get-or-build store: hot entries in an in-memory LRU,
// every entry on disk as JSON. Concurrent callers asking for the same key
// share a single build.
type Cache struct {
	dir    string
	hot    *lru.Cache[string, *extract.Extraction]
	group  singleflight.Group
	logger *slog.Logger
}

// New opens a cache rooted at dir, creating the directory if needed.
func New(dir string, size int, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	hot, err := lru.New[string, *extract.Extraction](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &Cache{dir: dir, hot: hot, logger: logger}, nil
}

type buildResult struct {
	extraction *extract.Extraction
	hit        bool
}

// GetOrBuild returns the extraction for key, building it at most once per key
// across concurrent callers. The bool reports whether the value came from
// cache rather than a fresh build.
func (c *Cache) GetOrBuild(ctx context.Context, key string, build BuildFunc) (*extract.Extraction, bool, error) {
	if ext, ok := c.hot.Get(key); ok {
		return ext, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check both tiers: another caller may have finished while we
		// were queued on the flight group.
		if ext, ok := c.hot.Get(key); ok {
			return buildResult{ext, true}, nil
		}
		if ext, ok := c.load(key); ok {
			c.hot.Add(key, ext)
			return buildResult{ext, true}, nil
		}

		ext, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.persist(key, ext); err != nil {
			c.logger.Warn("Failed to persist extraction to cache", "key", key, "error", err)
		}
		c.hot.Add(key, ext)
		return buildResult{ext, false}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(buildResult)
	return res.extraction, res.hit, nil
}

func (c *Cache) load(key string) (*extract.Extraction, bool) {
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		return nil, false
	}
	var ext extract.Extraction
	if err := json.Unmarshal(data, &ext); err != nil {
		// Corrupt entry, likely a torn write from another process. The
		// rebuild below overwrites it.
		c.logger.Warn("Discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &ext, true
}

func (c *Cache) persist(key string, ext *extract.Extraction) error {
	data, err := json.Marshal(ext)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.entryPath(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move cache entry into place: %w", err)
	}
	return nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Clear drops every cached entry, in memory and on disk.
func (c *Cache) Clear() error {
	c.hot.Purge()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove cache entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Stats reports cache occupancy for status output.
type Stats struct {
	MemoryEntries int
	DiskEntries   int
}

// Stats counts entries in both tiers.
func (c *Cache) Stats() Stats {
	stats := Stats{MemoryEntries: c.hot.Len()}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return stats
	}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			stats.DiskEntries++
		}
	}
	return stats
}
