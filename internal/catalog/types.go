// Package catalog talks to the Catalog registry: one record per dataset plus
// file-list datablocks and attachments.
package catalog

import (
	"regexp"

	"github.com/als-computing/ingest-core/internal/manifest"
)

// DatasetCreate is the payload for creating a Catalog dataset record.
// CreateDataset is not idempotent on the far side; the descriptor guard is
// what keeps this from running twice.
type DatasetCreate struct {
	Name                  string         `json:"datasetName"`
	Description           string         `json:"description,omitempty"`
	Owner                 string         `json:"owner"`
	OwnerGroup            string         `json:"ownerGroup"`
	AccessGroups          []string       `json:"accessGroups,omitempty"`
	ContactEmail          string         `json:"contactEmail,omitempty"`
	CreationTime          string         `json:"creationTime,omitempty"`
	SourceFolder          string         `json:"sourceFolder"`
	Size                  int64          `json:"size"`
	NumberOfFiles         int            `json:"numberOfFiles"`
	PrincipalInvestigator string         `json:"principalInvestigator,omitempty"`
	ScientificMetadata    map[string]any `json:"scientificMetadata,omitempty"`
	Keywords              []string       `json:"keywords,omitempty"`
	Type                  string         `json:"type"`
}

// DataFile is one file entry inside a datablock.
type DataFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Time string `json:"time"`
}

// DatablockCreate is the payload for registering a dataset's file list.
type DatablockCreate struct {
	DatasetID string     `json:"datasetId"`
	Size      int64      `json:"size"`
	DataFiles []DataFile `json:"dataFileList"`
}

// AttachmentCreate is the payload for attaching a thumbnail to a dataset.
type AttachmentCreate struct {
	Thumbnail string `json:"thumbnail"`
	Caption   string `json:"caption"`
}

// AccessControls pairs the owner group with the groups allowed to see a
// dataset.
type AccessControls struct {
	OwnerGroup   string
	AccessGroups []string
}

var trimJunk = regexp.MustCompile(`^["'\s,]+|["'\s,]+$`)

// AccessControlsFor derives access controls from the ingesting user, the
// beamline and the proposal. The owner group falls back to the username so
// someone always has access when no proposal is known.
func AccessControlsFor(username, beamline, proposal string) AccessControls {
	ownerGroup := username
	if proposal != "" && proposal != "None" {
		ownerGroup = proposal
	}

	var accessGroups []string
	if beamline != "" {
		beamline = trimJunk.ReplaceAllString(beamline, "")
		accessGroups = append(accessGroups, beamline)
		if username != beamline {
			accessGroups = append(accessGroups, username)
		}
	}
	return AccessControls{OwnerGroup: ownerGroup, AccessGroups: accessGroups}
}

// DataFilesFromManifest converts manifest entries into datablock files.
func DataFilesFromManifest(m *manifest.FileManifest) []DataFile {
	files := make([]DataFile, 0, m.Len())
	for _, e := range m.Files {
		files = append(files, DataFile{Path: e.Path, Size: e.SizeBytes, Time: e.DateLastModified})
	}
	return files
}
