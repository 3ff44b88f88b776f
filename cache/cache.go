package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Groups of cached public queries. Writers invalidate the group they affect.
const (
	GroupListings = "listings"
	GroupBlog     = "blog"
	GroupSitemap  = "sitemap"
)

// Invalidator is what writers need from the cache.
type Invalidator interface {
	Invalidate(groups ...string) error
}

// FileCache stores rendered responses on disk, one directory per group.
type FileCache struct {
	dir    string
	maxAge time.Duration
}

func New(dir string, maxAge time.Duration) *FileCache {
	if dir == "" {
		dir = "cache"
	}
	return &FileCache{dir: dir, maxAge: maxAge}
}

// GetCachePath returns the file holding the response for key within group.
func (fc *FileCache) GetCachePath(group, key string) string {
	hash := generateHash(group + key)
	return filepath.Join(fc.dir, group, hash+".cache")
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// Write stores body with its content type. The first line of the file is the type.
func (fc *FileCache) Write(group, key, contentType string, body []byte) error {
	if err := os.MkdirAll(filepath.Join(fc.dir, group), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString(contentType)
	buf.WriteByte('\n')
	buf.Write(body)
	return os.WriteFile(fc.GetCachePath(group, key), buf.Bytes(), 0644)
}

// Read returns a cached response if it exists and is not expired.
func (fc *FileCache) Read(group, key string) (contentType string, body []byte, ok bool) {
	path := fc.GetCachePath(group, key)

	info, err := os.Stat(path)
	if err != nil {
		return "", nil, false
	}
	if time.Since(info.ModTime()) > fc.maxAge {
		return "", nil, false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, false
	}
	head, rest, found := bytes.Cut(content, []byte{'\n'})
	if !found {
		return "", nil, false
	}
	return string(head), rest, true
}

// Invalidate drops every cached response of the given groups.
func (fc *FileCache) Invalidate(groups ...string) error {
	for _, g := range groups {
		if err := os.RemoveAll(filepath.Join(fc.dir, g)); err != nil {
			return err
		}
	}
	return nil
}

// ClearOldCache removes cache files older than maxAge
func (fc *FileCache) ClearOldCache() error {
	return filepath.Walk(fc.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".cache") {
			return nil
		}
		if time.Since(info.ModTime()) > fc.maxAge {
			os.Remove(path)
		}
		return nil
	})
}
