// Package descriptor owns the durable, file-resident record that ties a
// dataset's manifest to its Catalog and Tracker identities.
package descriptor

import (
	"github.com/als-computing/ingest-core/internal/manifest"
)

// CatalogInfo records what the Catalog registry knows about this dataset.
// DatasetID doubles as the double-ingestion guard: once set, another
// ingestion run over this descriptor must be refused.
type CatalogInfo struct {
	DatasetID        string   `json:"dataset_id,omitempty"`
	RegistryInstance string   `json:"registry_instance,omitempty"`
	DateIngested     string   `json:"date_ingested,omitempty"`
	ExtractorUsed    string   `json:"extractor_used,omitempty"`
	RunLog           []string `json:"run_log,omitempty"`
}

// TrackerInfo records the Tracker registry linkage. InstanceComments are
// owned by humans; the engine preserves them and never originates them.
type TrackerInfo struct {
	TrackerDatasetID string   `json:"tracker_dataset_id,omitempty"`
	RegistryInstance string   `json:"registry_instance,omitempty"`
	InstanceRecordID string   `json:"instance_record_id,omitempty"`
	InstanceComments []string `json:"instance_comments,omitempty"`
}

// Descriptor is the single durable record of a dataset's provenance.
type Descriptor struct {
	BeamlineID            string                 `json:"beamline_id"`
	ProposalID            string                 `json:"proposal_id"`
	PrincipalInvestigator string                 `json:"principal_investigator,omitempty"`
	Name                  string                 `json:"name"`
	Description           string                 `json:"description,omitempty"`
	DateOfAcquisition     string                 `json:"date_of_acquisition,omitempty"`
	FileManifest          *manifest.FileManifest `json:"file_manifest,omitempty"`
	Catalog               CatalogInfo            `json:"catalog"`
	Tracker               TrackerInfo            `json:"tracker"`
}

// Ingested reports whether a Catalog ingestion has already happened.
func (d *Descriptor) Ingested() bool {
	return d != nil && d.Catalog.DatasetID != ""
}
