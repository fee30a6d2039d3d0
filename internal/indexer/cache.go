package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/config"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/extractor"
)

// cacheSchemaVersion invalidates every cached payload when the FileFacts
// shape changes. Bump on any extractor model change.
const cacheSchemaVersion uint16 = 1

// factsCache is the incremental indexing cache: per-file extracted facts
// keyed by content hash, serialized with msgpack. A stale or unreadable
// entry falls back to re-extraction; cache failures are never fatal.
type factsCache struct {
	dir     string
	version uint16
	index   map[string]cacheIndexEntry
	dirty   bool
}

type cacheIndexEntry struct {
	ContentHash string `msgpack:"content_hash"`
	FactsPath   string `msgpack:"facts_path"`
}

type cachePayload struct {
	Schema uint16
	Facts  extractor.FileFacts
}

func newFactsCache(dir string, version uint16) *factsCache {
	return &factsCache{
		dir:     dir,
		version: version,
		index:   make(map[string]cacheIndexEntry),
	}
}

func (c *factsCache) indexPath() string {
	return filepath.Join(c.dir, "index.msgpack")
}

func (c *factsCache) factsDir() string {
	return filepath.Join(c.dir, "facts")
}

func (c *factsCache) factsPathForFile(filePath string) string {
	sum := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.factsDir(), hex.EncodeToString(sum[:16])+".msgpack")
}

// Load reads the cache index. A missing index is an empty cache.
func (c *factsCache) Load() error {
	data, err := os.ReadFile(c.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache index: %w", err)
	}
	if err := msgpack.Unmarshal(data, &c.index); err != nil {
		// Corrupt index: start over rather than fail.
		c.index = make(map[string]cacheIndexEntry)
	}
	return nil
}

// Save writes the cache index if anything changed.
func (c *factsCache) Save() error {
	if !c.dirty {
		return nil
	}
	data, err := msgpack.Marshal(c.index)
	if err != nil {
		return fmt.Errorf("marshaling cache index: %w", err)
	}
	return writeFileAtomic(c.indexPath(), data)
}

// Get returns the cached facts for a file if the content hash still matches.
func (c *factsCache) Get(filePath, contentHash string) (extractor.FileFacts, bool, error) {
	entry, ok := c.index[filePath]
	if !ok || entry.ContentHash != contentHash {
		return extractor.FileFacts{}, false, nil
	}
	data, err := os.ReadFile(entry.FactsPath)
	if err != nil {
		return extractor.FileFacts{}, false, nil
	}
	var payload cachePayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return extractor.FileFacts{}, false, fmt.Errorf("decoding cached facts: %w", err)
	}
	if payload.Schema != c.version {
		return extractor.FileFacts{}, false, nil
	}
	return payload.Facts, true, nil
}

// Put stores extracted facts for a file under its content hash.
func (c *factsCache) Put(filePath, contentHash string, facts extractor.FileFacts) error {
	data, err := msgpack.Marshal(cachePayload{Schema: c.version, Facts: facts})
	if err != nil {
		return fmt.Errorf("marshaling facts: %w", err)
	}
	path := c.factsPathForFile(filePath)
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	c.index[filePath] = cacheIndexEntry{ContentHash: contentHash, FactsPath: path}
	c.dirty = true
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func resolveCacheDir(rootPath string, cfg *config.Config) string {
	dir := cfg.Analysis.Cache.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootPath, dir)
	}
	return dir
}
