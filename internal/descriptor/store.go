package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

const (
	// BaseName is the well-known descriptor file name inside a dataset root.
	// Once a Tracker dataset slug is known the file is renamed to
	// "dataset-descriptor-<slug>.json".
	BaseName = "dataset-descriptor"

	descriptorExt = ".json"
	lockName      = BaseName + ".lock"
	tmpPrefix     = BaseName + ".tmp-"
)

// IsDescriptorName reports whether a file name is a descriptor file. Such
// files are never listed in the manifest.
func IsDescriptorName(name string) bool {
	return strings.HasPrefix(name, BaseName) && strings.HasSuffix(name, descriptorExt)
}

// IsEngineFile reports whether a file name belongs to the engine itself:
// descriptor files, the advisory lock, and temp files from an interrupted
// persist. Such files are never treated as dataset data.
func IsEngineFile(name string) bool {
	return IsDescriptorName(name) || name == lockName || strings.HasPrefix(name, tmpPrefix)
}

// Store reads and writes descriptor files in a dataset root.
type Store struct {
	log zerolog.Logger
}

// NewStore creates a descriptor store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{log: log}
}

// Load reads the descriptor for the dataset at root. Absence is ErrNotFound,
// which callers treat as a first ingestion. Finding more than one descriptor
// file is fatal.
func (s *Store) Load(root string) (*Descriptor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read dataset root: %w", err)
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsDescriptorName(entry.Name()) {
			matches = append(matches, filepath.Join(root, entry.Name()))
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
	default:
		return nil, fmt.Errorf("%w: %v", ErrMultipleDescriptors, matches)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", matches[0], err)
	}
	if d.FileManifest != nil {
		// The stored total is never trusted as truth.
		d.FileManifest.Recompute()
		if err := d.FileManifest.Validate(); err != nil {
			return nil, fmt.Errorf("descriptor manifest invalid: %w", err)
		}
	}
	s.log.Info().Str("file", matches[0]).Msg("loaded existing descriptor")
	return &d, nil
}

// Persist atomically writes the full descriptor into root. The write happens
// at the end of every run, however far it got, so partial progress is
// observable on the next run.
func (s *Store) Persist(d *Descriptor, root string) error {
	name := BaseName + descriptorExt
	if slug := d.Tracker.TrackerDatasetID; slug != "" {
		name = fmt.Sprintf("%s-%s%s", BaseName, slug, descriptorExt)
	}
	target := filepath.Join(root, name)

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(root, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp descriptor: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write descriptor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close descriptor: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename descriptor: %w", err)
	}

	// A slug-less copy from an earlier run is superseded by the slugged file.
	if name != BaseName+descriptorExt {
		old := filepath.Join(root, BaseName+descriptorExt)
		if _, statErr := os.Lstat(old); statErr == nil {
			if rmErr := os.Remove(old); rmErr != nil {
				s.log.Warn().Err(rmErr).Str("file", old).Msg("could not remove superseded descriptor file")
			}
		}
	}

	s.log.Info().Str("file", target).Msg("wrote updated descriptor file")
	return nil
}

// LockRun takes the advisory per-dataset lock, closing the race between the
// already-ingested check and the first remote mutation. The returned release
// must be called when the run ends.
func (s *Store) LockRun(root string) (release func(), err error) {
	fl := flock.New(filepath.Join(root, lockName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock descriptor: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.log.Warn().Err(err).Msg("could not release descriptor lock")
			return
		}
		// flock leaves the lock file behind after Unlock.
		if err := os.Remove(fl.Path()); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("could not remove descriptor lock file")
		}
	}, nil
}
