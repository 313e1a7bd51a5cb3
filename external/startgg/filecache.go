package startgg

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sonic "github.com/bytedance/sonic"
)

const defaultCacheTTL = 7 * 24 * time.Hour

// ResponseCache stores raw provider responses on disk so unchanged queries can
// be replayed without network access. Entries older than the TTL are treated
// as absent; their payloads are archived with a timestamp suffix on overwrite
// rather than destroyed.
type ResponseCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewResponseCache(dir string, ttl time.Duration) (*ResponseCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("response cache dir is required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create response cache dir: %w", err)
	}
	return &ResponseCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// CacheKey derives the stable cache key for a query and its variables. The
// variables are serialized with sorted keys so argument order never changes
// the key.
func CacheKey(query string, variables map[string]any) string {
	canonical, err := sonic.ConfigStd.Marshal(variables)
	if err != nil {
		canonical = []byte(fmt.Sprintf("%v", variables))
	}
	sum := sha256.Sum256(append([]byte(query), canonical...))
	return hex.EncodeToString(sum[:])
}

func (c *ResponseCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Load returns the cached payload for key when present and fresh.
func (c *ResponseCache) Load(key string) ([]byte, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if c.now().Sub(info.ModTime()) >= c.ttl {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Store writes the payload for key, archiving any previous payload first.
func (c *ResponseCache) Store(key string, payload []byte) error {
	if c == nil || key == "" {
		return nil
	}
	path := c.path(key)
	if _, err := os.Stat(path); err == nil {
		archived := filepath.Join(c.dir, fmt.Sprintf("%s.%d.json", key, c.now().Unix()))
		if err := os.Rename(path, archived); err != nil {
			return fmt.Errorf("archive cached response: %w", err)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write cached response: %w", err)
	}
	return nil
}
