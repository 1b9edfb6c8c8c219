package descriptor

import (
	"fmt"

	"github.com/als-computing/ingest-core/internal/manifest"
)

// ValidateForIngestion decides whether an ingestion run over d is legal.
// It fails with ErrAlreadyIngested when a Catalog dataset id is already set,
// and with ErrManifestMismatch when incoming contains a path the persisted
// manifest does not declare. It runs before any merge and before any remote
// mutation.
func ValidateForIngestion(d *Descriptor, incoming []manifest.Entry) error {
	if d == nil {
		return nil
	}
	if d.Ingested() {
		return fmt.Errorf("%w: %s", ErrAlreadyIngested, d.Catalog.DatasetID)
	}
	if d.FileManifest == nil || d.FileManifest.Len() == 0 {
		return nil
	}
	var missing []string
	for _, e := range incoming {
		if !d.FileManifest.Contains(e.Path) {
			missing = append(missing, e.Path)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrManifestMismatch, missing)
	}
	return nil
}

// Merge folds incoming entries into an existing manifest. Entries already
// present by path are kept as-is, preserving the originally recorded size and
// mtime; genuinely new paths are appended in input order.
func Merge(existing *manifest.FileManifest, incoming []manifest.Entry) *FileManifestResult {
	merged := &manifest.FileManifest{}
	if existing != nil {
		for _, e := range existing.Files {
			// Existing manifests are path-unique by invariant.
			_ = merged.Append(e)
		}
	}
	var appended int
	for _, e := range incoming {
		if merged.Contains(e.Path) {
			continue
		}
		_ = merged.Append(e)
		appended++
	}
	return &FileManifestResult{Manifest: merged, Appended: appended}
}

// FileManifestResult reports the outcome of a merge.
type FileManifestResult struct {
	Manifest *manifest.FileManifest
	Appended int
}
