// Package lockfile implements ftlkit.lock — a lock file tracking MD5
// checksums of legacy source strings that already fed a merge. This
// enables incremental migration: a later run can gate its changeset to
// legacy translations that are new or have changed since the last run,
// instead of re-considering everything.
//
// The lock file is stored in the output directory as ftlkit.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/ftlkit/legacy"
)

// LockFileName is the default lock file name.
const LockFileName = "ftlkit.lock"

// Version is the lock file format version.
const Version = 1

// LockFile represents the ftlkit.lock file structure.
type LockFile struct {
	Version int `yaml:"version"`
	// Migrated maps legacy resource path → entry key → md5 of the
	// source value at the time it was last merged.
	Migrated map[string]map[string]string `yaml:"migrated"`

	path string `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the lock file from the given directory.
// Returns an empty lock file if none exists yet.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:  Version,
		Migrated: make(map[string]map[string]string),
		path:     path,
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
	lf.path = path

	if lf.Migrated == nil {
		lf.Migrated = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk, creating the directory if needed.
func (lf *LockFile) Save() error {
	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(lf.path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(lf.path), err)
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

// Changed reports whether a legacy source value is new or has changed
// since the last recorded merge.
func (lf *LockFile) Changed(path, key, value string) bool {
	keys, ok := lf.Migrated[path]
	if !ok {
		return true
	}
	oldHash, ok := keys[key]
	if !ok {
		return true
	}
	return oldHash != Hash(value)
}

// Record stores the checksum of a legacy source value after it has been
// considered by a successful merge.
func (lf *LockFile) Record(path, key, value string) {
	if lf.Migrated[path] == nil {
		lf.Migrated[path] = make(map[string]string)
	}
	lf.Migrated[path][key] = Hash(value)
}

// RecordCollection records every entry of a legacy collection.
func (lf *LockFile) RecordCollection(path string, col legacy.Collection) {
	for _, key := range col.Keys() {
		if value, ok := col.Get(key); ok {
			lf.Record(path, key, value)
		}
	}
}

// ChangedRefs returns the refs of all entries in a legacy collection
// that are new or changed — the incremental changeset contribution of
// one legacy resource.
func (lf *LockFile) ChangedRefs(path string, col legacy.Collection) []legacy.Ref {
	var refs []legacy.Ref
	for _, key := range col.Keys() {
		value, ok := col.Get(key)
		if !ok {
			continue
		}
		if lf.Changed(path, key, value) {
			refs = append(refs, legacy.Ref{Path: path, Key: key})
		}
	}
	return refs
}

// Clean removes recorded entries for keys no longer present in the
// collection, so stale checksums do not accumulate.
func (lf *LockFile) Clean(path string, col legacy.Collection) {
	keys := lf.Migrated[path]
	if keys == nil {
		return
	}
	live := make(map[string]bool)
	for _, key := range col.Keys() {
		live[key] = true
	}
	for key := range keys {
		if !live[key] {
			delete(keys, key)
		}
	}
}
