package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a FeedCache that holds no entry for a URL.
var ErrCacheMiss = errors.New("feed cache miss")

// CacheEntry is a cached feed body with its HTTP validators.
type CacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	Body         []byte    `json:"body,omitempty"`
}

// FeedCache stores the last good copy of a feed.
type FeedCache interface {
	Load(ctx context.Context, url string) (CacheEntry, error)
	Store(ctx context.Context, entry CacheEntry) error
}

func urlKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	// First 16 hex chars are enough to keep feeds apart.
	return hex.EncodeToString(sum[:8])
}

// DiskCache keeps one directory per URL holding meta.json and body.ics.
type DiskCache struct {
	dir string
}

// NewDiskCache creates a disk cache rooted at dir. An empty dir falls back
// to a relative path so development runs work without root permissions.
func NewDiskCache(dir string) *DiskCache {
	if dir == "" {
		dir = "./var/holiday-cache"
	}
	return &DiskCache{dir: dir}
}

func (c *DiskCache) Load(_ context.Context, url string) (CacheEntry, error) {
	path := filepath.Join(c.dir, urlKey(url))

	var meta CacheEntry
	data, err := os.ReadFile(filepath.Join(path, "meta.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CacheEntry{}, ErrCacheMiss
		}
		return CacheEntry{}, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return CacheEntry{}, fmt.Errorf("decode cache meta: %w", err)
	}

	body, err := os.ReadFile(filepath.Join(path, "body.ics"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CacheEntry{}, ErrCacheMiss
		}
		return CacheEntry{}, err
	}
	meta.Body = body
	return meta, nil
}

func (c *DiskCache) Store(_ context.Context, entry CacheEntry) error {
	path := filepath.Join(c.dir, urlKey(entry.URL))
	if err := os.MkdirAll(path, 0o700); err != nil {
		return err
	}

	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(path, "body.ics"), entry.Body, 0o600); err != nil {
		return err
	}

	meta := entry
	meta.Body = nil
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(path, "meta.json"), data, 0o600)
}

// RedisCache stores entries as JSON blobs with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "coursecal"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(url string) string {
	return fmt.Sprintf("%s:holiday-feed:%s", c.prefix, urlKey(url))
}

func (c *RedisCache) Load(ctx context.Context, url string) (CacheEntry, error) {
	data, err := c.client.Get(ctx, c.key(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return CacheEntry{}, ErrCacheMiss
		}
		return CacheEntry{}, fmt.Errorf("redis get feed: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return CacheEntry{}, fmt.Errorf("unmarshal cached feed: %w", err)
	}
	return entry, nil
}

func (c *RedisCache) Store(ctx context.Context, entry CacheEntry) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal feed for cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key(entry.URL), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set feed: %w", err)
	}
	return nil
}
