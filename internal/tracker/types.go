// Package tracker talks to the Tracker registry, which records organizational
// facts about datasets: beamline, proposal, storage instances, per-file rows.
package tracker

// Share is a named physical storage location. DatasetInstance paths are
// interpreted relative to a share.
type Share struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Beamline is a lightweight named registry entity, looked up by name and
// created on first reference.
type Beamline struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// BeamlineCreate is the payload for creating a beamline.
type BeamlineCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Proposal is a lightweight named registry entity, looked up by name and
// created on first reference.
type Proposal struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProposalCreate is the payload for creating a proposal.
type ProposalCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Dataset is the Tracker-side dataset record (distinct from the Catalog
// dataset), linked to a beamline and proposal and carrying the Catalog
// dataset id for cross-reference.
type Dataset struct {
	Slug                string `json:"slug"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	SlugBeamline        string `json:"slug_beamline"`
	SlugProposal        string `json:"slug_proposal"`
	DateOfAcquisition   string `json:"date_of_acquisition,omitempty"`
	CatalogDatasetID    string `json:"catalog_dataset_id,omitempty"`
	CatalogDateIngested string `json:"catalog_date_ingested,omitempty"`
	IngestionRunID      string `json:"ingestion_run_id,omitempty"`
}

// DatasetCreate is the payload for creating a Tracker dataset.
type DatasetCreate struct {
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	SlugBeamline        string `json:"slug_beamline"`
	SlugProposal        string `json:"slug_proposal"`
	DateOfAcquisition   string `json:"date_of_acquisition,omitempty"`
	CatalogDatasetID    string `json:"catalog_dataset_id,omitempty"`
	CatalogDateIngested string `json:"catalog_date_ingested,omitempty"`
	IngestionRunID      string `json:"ingestion_run_id,omitempty"`
}

// DatasetInstance is one record per physical location at which a dataset's
// files reside within a share.
type DatasetInstance struct {
	ID               string `json:"id"`
	SlugDataset      string `json:"slug_dataset"`
	SlugShare        string `json:"slug_share"`
	Path             string `json:"path"`
	FilesSizeBytes   int64  `json:"files_size_bytes"`
	DateCreated      string `json:"date_created,omitempty"`
	DateFilesDeleted string `json:"date_files_deleted,omitempty"`
	IngestionRunID   string `json:"ingestion_run_id,omitempty"`
}

// InstanceCreate is the payload for creating a dataset instance.
type InstanceCreate struct {
	SlugDataset    string `json:"slug_dataset"`
	SlugShare      string `json:"slug_share"`
	Path           string `json:"path"`
	FilesSizeBytes int64  `json:"files_size_bytes"`
	IngestionRunID string `json:"ingestion_run_id,omitempty"`
}

// DatasetInstanceFile is one record per manifest entry belonging to an
// instance, keyed by relative path within the instance.
type DatasetInstanceFile struct {
	ID               string `json:"id"`
	InstanceID       string `json:"id_dataset_instance"`
	Path             string `json:"file_path"`
	SizeBytes        int64  `json:"file_size_bytes"`
	DateLastModified string `json:"date_file_last_modified,omitempty"`
	IsSupplemental   bool   `json:"is_supplemental"`
}

// InstanceFileCreate is the payload for creating an instance file record.
type InstanceFileCreate struct {
	InstanceID       string `json:"id_dataset_instance"`
	Path             string `json:"file_path"`
	SizeBytes        int64  `json:"file_size_bytes"`
	DateLastModified string `json:"date_file_last_modified,omitempty"`
	IsSupplemental   bool   `json:"is_supplemental"`
}

// InstanceFilter selects dataset instances. ExcludeDeleted keeps only rows
// whose files are still on disk. Results are expected newest-first.
type InstanceFilter struct {
	SlugDataset    string
	SlugShare      string
	Path           string
	ExcludeDeleted bool
}
