// Package lockfile implements .propkit.lock, a lock file that records, per
// locale file and key, a checksum of the default file's value the
// translation was made from. When the default value changes later the
// translation is reported as stale until the next `propkit sync --accept`.
//
// The lock file is stored alongside .propkit.yaml.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the default lock file name.
const FileName = ".propkit.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the .propkit.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // target -> key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, FileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d", path, lf.Version)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk. An empty lock file is removed instead.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	if len(lf.Checksums) == 0 {
		if err := os.Remove(lf.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", lf.path, err)
		}
		return nil
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// IsStale reports whether the translation of key in target was made from a
// different source value. Keys without a record are never stale.
func (lf *LockFile) IsStale(target, key, source string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Checksums[target][key]
	return ok && old != Hash(source)
}

// Record updates the checksums of target from entries (key -> source
// value) and drops keys entries no longer has. Existing checksums are kept
// unless accept is set, so stale translations stay stale until reviewed.
// Keys listed in untranslated lose their checksum.
func (lf *LockFile) Record(target string, entries map[string]string, untranslated map[string]bool, accept bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old := lf.Checksums[target]
	next := make(map[string]string, len(entries))
	for key, source := range entries {
		if untranslated[key] {
			continue
		}
		if h, ok := old[key]; ok && !accept {
			next[key] = h
			continue
		}
		next[key] = Hash(source)
	}

	if len(next) == 0 {
		delete(lf.Checksums, target)
		return
	}
	lf.Checksums[target] = next
}

// RemoveTarget removes all checksums for a target.
func (lf *LockFile) RemoveTarget(target string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, target)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of targets and total keys in the lock file.
func (lf *LockFile) Stats() (targets, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns sorted list of target paths.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, keys := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		lf.mu.Lock()
		n := len(lf.Checksums[t])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d keys", t, n))
	}
	return fmt.Sprintf("%d targets, %d keys (%s)", targets, keys, strings.Join(parts, ", "))
}
