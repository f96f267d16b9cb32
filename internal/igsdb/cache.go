package igsdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultMaxAge is how long a cached entry is trusted before the catalog is
// consulted again.
const DefaultMaxAge = 24 * time.Hour

// DiskCache persists resolved metadata across runs as one JSON file per id.
// Misses are cached too, so an id the catalog does not know is not re-fetched
// on every run. Entries older than MaxAge are re-resolved.
type DiskCache struct {
	Dir    string
	MaxAge time.Duration
	Next   Provider // nil = offline; cache misses become catalog misses
}

type cacheEntry struct {
	FetchedAt time.Time `json:"fetched_at"`
	Found     bool      `json:"found"`
	Meta      Metadata  `json:"metadata"`
}

// NewDiskCache returns a cache rooted at dir in front of next.
func NewDiskCache(dir string, next Provider) *DiskCache {
	return &DiskCache{Dir: dir, MaxAge: DefaultMaxAge, Next: next}
}

// Resolve implements Provider.
func (c *DiskCache) Resolve(ctx context.Context, id int) (Metadata, bool, error) {
	if entry, ok := c.read(id); ok {
		return entry.Meta, entry.Found, nil
	}
	if c.Next == nil {
		return Metadata{}, false, nil
	}

	meta, found, err := c.Next.Resolve(ctx, id)
	if err != nil {
		return Metadata{}, false, err
	}
	if werr := c.write(id, cacheEntry{FetchedAt: time.Now().UTC(), Found: found, Meta: meta}); werr != nil {
		// A cache write failure costs a re-fetch next run, nothing more.
		return meta, found, nil
	}
	return meta, found, nil
}

func (c *DiskCache) path(id int) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%d.json", id))
}

func (c *DiskCache) read(id int) (cacheEntry, bool) {
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		return cacheEntry{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		os.Remove(c.path(id))
		return cacheEntry{}, false
	}
	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if time.Since(entry.FetchedAt) > maxAge {
		return cacheEntry{}, false
	}
	return entry, true
}

func (c *DiskCache) write(id int, entry cacheEntry) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(id), data, 0644)
}

// Prune removes cache entries older than the given age. Returns the number
// of files removed.
func (c *DiskCache) Prune(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > olderThan {
			if os.Remove(filepath.Join(c.Dir, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
