package cache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"repo-explainer/config"
	"repo-explainer/internal/github"
)

// Cache handles file-backed caching of fetched trees and file contents,
// so repeated questions against the same repository don't re-hit the
// source-hosting API. A cache miss or error is never a pipeline failure.
type Cache struct {
	config *config.Config
}

// CacheEntry represents one cached payload
type CacheEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewCache creates a new cache instance
func NewCache(cfg *config.Config) *Cache {
	return &Cache{config: cfg}
}

// GetTree retrieves a cached repository tree if available and not expired
func (c *Cache) GetTree(owner, repo, ref string) ([]github.TreeEntry, bool) {
	var entries []github.TreeEntry
	if !c.load(c.treePath(owner, repo, ref), &entries) {
		return nil, false
	}
	return entries, true
}

// SetTree caches a repository tree
func (c *Cache) SetTree(owner, repo, ref string, entries []github.TreeEntry) error {
	return c.save(c.treePath(owner, repo, ref), entries)
}

// GetContent retrieves cached file content if available and not expired
func (c *Cache) GetContent(owner, repo, path string) (string, bool) {
	var content string
	if !c.load(c.contentPath(owner, repo, path), &content) {
		return "", false
	}
	return content, true
}

// SetContent caches file content
func (c *Cache) SetContent(owner, repo, path, content string) error {
	return c.save(c.contentPath(owner, repo, path), content)
}

// Clear removes all cached entries
func (c *Cache) Clear() error {
	return os.RemoveAll(c.config.Cache.Directory)
}

func (c *Cache) load(cacheFile string, out interface{}) bool {
	if !c.config.Cache.Enabled {
		return false
	}

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return false
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return false
	}

	if time.Since(entry.Timestamp) > c.config.GetCacheTTL() {
		return false
	}

	return json.Unmarshal(entry.Payload, out) == nil
}

func (c *Cache) save(cacheFile string, payload interface{}) error {
	if !c.config.Cache.Enabled {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	entry := CacheEntry{
		Timestamp: time.Now(),
		Payload:   raw,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cacheFile), 0755); err != nil {
		return err
	}

	return os.WriteFile(cacheFile, data, 0644)
}

func (c *Cache) treePath(owner, repo, ref string) string {
	key := hashKey(fmt.Sprintf("%s/%s@%s", owner, repo, ref))
	filename := fmt.Sprintf("%s-%s_tree_%s.json", owner, repo, key[:8])
	return filepath.Join(c.config.Cache.Directory, filename)
}

func (c *Cache) contentPath(owner, repo, path string) string {
	key := hashKey(fmt.Sprintf("%s/%s:%s", owner, repo, path))
	safeName := filepath.Base(path)
	filename := fmt.Sprintf("%s_content_%s.json", safeName, key[:8])
	return filepath.Join(c.config.Cache.Directory, filename)
}

// hashKey creates a hash of a cache key to avoid filename collisions
func hashKey(key string) string {
	hash := md5.Sum([]byte(key))
	return fmt.Sprintf("%x", hash)
}
