package driver

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"rook/internal/project"
)

// Current schema version — increment when the payload format changes.
const diskCacheSchemaVersion uint16 = 1

// CachedNote is the wire form of a diagnostic note.
type CachedNote struct {
	Msg   string
	Start uint32
	End   uint32
}

// CachedDiagnostic is the wire form of one diagnostic.
type CachedDiagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Start    uint32
	End      uint32
	Notes    []CachedNote
}

// diskPayload is what one cache entry stores.
type diskPayload struct {
	Schema      uint16
	Path        string
	Diagnostics []CachedDiagnostic
}

// DiskCache persists per-file diagnostics keyed by content digest, so
// re-checking an unchanged file replays instead of recomputing.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache initializes a cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt initializes a cache rooted at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "diags"), 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "diags", key.Hex()+".mp")
}

// Put stores the diagnostics for one file version.
func (c *DiskCache) Put(path string, content []byte, diags []CachedDiagnostic) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := diskPayload{
		Schema:      diskCacheSchemaVersion,
		Path:        path,
		Diagnostics: diags,
	}
	data, err := msgpack.Marshal(&payload)
	if err != nil {
		return // cache is best-effort
	}
	key := project.DigestBytes(content)
	tmp := c.pathFor(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, c.pathFor(key))
}

// Get returns the cached diagnostics for content, if present and current.
func (c *DiskCache) Get(path string, content []byte) ([]CachedDiagnostic, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := project.DigestBytes(content)
	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return nil, false
	}
	var payload diskPayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return nil, false
	}
	if payload.Schema != diskCacheSchemaVersion {
		return nil, false
	}
	return payload.Diagnostics, true
}

// Clear drops every entry.
func (c *DiskCache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.RemoveAll(filepath.Join(c.dir, "diags"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.MkdirAll(filepath.Join(c.dir, "diags"), 0o755)
}
