// Package manifest holds the file manifest model: the authoritative list of
// files (path, size, modified time) that constitute one dataset.
package manifest

import (
	"fmt"
	"time"
)

// TimeFormat is the wire format for file modification times: UTC, whole
// seconds, trailing Z.
const TimeFormat = "2006-01-02T15:04:05Z"

// Entry describes one file belonging to a dataset. Path is slash-separated
// and relative to the dataset root; it is the unique key within a manifest.
type Entry struct {
	Path             string `json:"path"`
	SizeBytes        int64  `json:"size_bytes"`
	DateLastModified string `json:"date_last_modified"`
	IsSupplemental   bool   `json:"is_supplemental"`
}

// FileManifest is an ordered collection of entries keyed by path.
// TotalSizeBytes is derived; Recompute keeps it equal to the sum of the
// entries at all times.
type FileManifest struct {
	Files          []Entry `json:"files"`
	TotalSizeBytes int64   `json:"total_size_bytes"`
}

// New builds a manifest from the given entries, rejecting duplicate paths.
func New(entries []Entry) (*FileManifest, error) {
	m := &FileManifest{Files: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		if err := m.Append(e); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Append adds one entry, keeping the path-uniqueness invariant and the
// running total.
func (m *FileManifest) Append(e Entry) error {
	if m.Contains(e.Path) {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, e.Path)
	}
	m.Files = append(m.Files, e)
	m.TotalSizeBytes += e.SizeBytes
	return nil
}

// Contains reports whether a path is already present.
func (m *FileManifest) Contains(path string) bool {
	for _, e := range m.Files {
		if e.Path == path {
			return true
		}
	}
	return false
}

// Lookup returns the entry for path.
func (m *FileManifest) Lookup(path string) (Entry, bool) {
	for _, e := range m.Files {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (m *FileManifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Files)
}

// Paths returns the entry paths in manifest order.
func (m *FileManifest) Paths() []string {
	paths := make([]string, 0, len(m.Files))
	for _, e := range m.Files {
		paths = append(paths, e.Path)
	}
	return paths
}

// ByPath returns the entries indexed by path.
func (m *FileManifest) ByPath() map[string]Entry {
	byPath := make(map[string]Entry, len(m.Files))
	for _, e := range m.Files {
		byPath[e.Path] = e
	}
	return byPath
}

// Recompute rebuilds TotalSizeBytes from the entries. Deserialized manifests
// go through this so the stored total is never trusted as truth.
func (m *FileManifest) Recompute() {
	var total int64
	for _, e := range m.Files {
		total += e.SizeBytes
	}
	m.TotalSizeBytes = total
}

// Validate checks the manifest invariants: unique paths and a total equal to
// the sum of the entry sizes.
func (m *FileManifest) Validate() error {
	seen := make(map[string]struct{}, len(m.Files))
	var total int64
	for _, e := range m.Files {
		if _, dup := seen[e.Path]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, e.Path)
		}
		seen[e.Path] = struct{}{}
		if e.SizeBytes < 0 {
			return fmt.Errorf("negative size for %s", e.Path)
		}
		total += e.SizeBytes
	}
	if total != m.TotalSizeBytes {
		return fmt.Errorf("total_size_bytes %d does not match entry sum %d", m.TotalSizeBytes, total)
	}
	return nil
}

// FormatModTime renders a modification time in the manifest wire format.
func FormatModTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeFormat)
}
