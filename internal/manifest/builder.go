package manifest

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Builder turns a dataset root into a FileManifest. With an explicit file
// list it validates each path; without one it discovers files recursively.
type Builder struct {
	// Exclude skips a relative path during discovery and validation. Used to
	// keep the descriptor file itself out of the manifest.
	Exclude func(rel string) bool

	log zerolog.Logger
}

// NewBuilder creates a builder logging to the given logger.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log}
}

// Build produces a manifest for root. Every supplied or discovered path must
// resolve to an existing, non-symlink, non-directory file under root; a
// violation drops the entry and records an Issue. Zero surviving entries is
// fatal (ErrNoValidFiles).
func (b *Builder) Build(root string, explicit []string) (*FileManifest, []Issue, error) {
	candidates := explicit
	if len(candidates) == 0 {
		b.log.Info().Str("root", root).Msg("no input files given, using all files under dataset path")
		discovered, err := b.discover(root)
		if err != nil {
			return nil, nil, err
		}
		candidates = discovered
	}

	var issues []Issue
	m := &FileManifest{}
	for _, rel := range candidates {
		rel = filepath.ToSlash(rel)
		if b.Exclude != nil && b.Exclude(rel) {
			continue
		}
		entry, issue := b.statEntry(root, rel)
		if issue != nil {
			b.log.Error().Str("path", rel).Msg(issue.Msg)
			issues = append(issues, *issue)
			continue
		}
		if m.Contains(entry.Path) {
			// Explicit lists may repeat a path; keep the first occurrence.
			issues = append(issues, Issue{Severity: SeverityWarning, Path: rel, Msg: "duplicate input path ignored"})
			continue
		}
		if err := m.Append(entry); err != nil {
			return nil, issues, err
		}
	}

	if m.Len() == 0 {
		return nil, issues, ErrNoValidFiles
	}
	return m, issues, nil
}

// discover walks root and returns relative slash paths of regular files,
// skipping symlinks.
func (b *Builder) discover(root string) ([]string, error) {
	var rels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			b.log.Warn().Str("path", path).Msg("symlink detected, skipping")
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// statEntry validates one candidate and builds its manifest entry.
func (b *Builder) statEntry(root, rel string) (Entry, *Issue) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Lstat(full)
	if err != nil {
		return Entry{}, &Issue{Severity: SeverityError, Path: rel, Msg: "given a file path that does not exist"}
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return Entry{}, &Issue{Severity: SeverityError, Path: rel, Msg: "symlink detected, skipping"}
	}
	if info.IsDir() {
		return Entry{}, &Issue{Severity: SeverityError, Path: rel, Msg: "given a file path that resolves to a folder"}
	}
	return Entry{
		Path:             rel,
		SizeBytes:        info.Size(),
		DateLastModified: FormatModTime(info.ModTime()),
		IsSupplemental:   false,
	}, nil
}
