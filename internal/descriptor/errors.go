package descriptor

import "errors"

var (
	// ErrNotFound means no descriptor file exists yet; the caller treats this
	// as a first ingestion, not a failure.
	ErrNotFound = errors.New("descriptor not found")

	// ErrMultipleDescriptors means more than one descriptor file exists in
	// the dataset root, which is ambiguous and fatal.
	ErrMultipleDescriptors = errors.New("multiple descriptor files found")

	// ErrAlreadyIngested means the descriptor already carries a Catalog
	// dataset id; ingesting again would create a duplicate Catalog record.
	ErrAlreadyIngested = errors.New("descriptor already has a catalog dataset id")

	// ErrManifestMismatch means the incoming file list contains paths absent
	// from the persisted manifest; the dataset's declared scope may not be
	// expanded silently.
	ErrManifestMismatch = errors.New("incoming files not present in existing manifest")

	// ErrRunInProgress means another run holds the advisory lock for this
	// dataset.
	ErrRunInProgress = errors.New("another ingestion run is in progress for this dataset")
)
