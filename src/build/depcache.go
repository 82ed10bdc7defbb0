package build

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const defaultCacheBase = ".gantry/cache/deps"

// Cache is a hash-keyed dependency cache location. The key is derived from
// the dependency manifest's content, so a manifest change yields a fresh
// cache and an unchanged manifest reuses the previous download.
type Cache struct {
	Key string
	Dir string
}

// ResolveCache computes the cache location for a manifest file.
func ResolveCache(base, manifest string) (*Cache, error) {
	if base == "" {
		base = defaultCacheBase
	}

	key, err := CacheKey(manifest)
	if err != nil {
		return nil, err
	}

	return &Cache{
		Key: key,
		Dir: filepath.Join(base, key[:12]),
	}, nil
}

// CacheKey computes the cache key from the manifest file content.
func CacheKey(manifest string) (string, error) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return "", fmt.Errorf("reading manifest for cache key: %w", err)
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

// restoreCache ensures the cache directory exists and reports whether a
// previous run populated it. A miss is not an error.
func restoreCache(dir string) (hit bool, err error) {
	entries, err := os.ReadDir(dir)
	if err == nil {
		return len(entries) > 0, nil
	}

	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return false, fmt.Errorf("creating cache dir: %w", mkErr)
	}
	return false, nil
}
