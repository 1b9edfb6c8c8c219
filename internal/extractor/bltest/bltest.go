// Package bltest provides the minimal built-in extraction strategy used for
// smoke-testing an ingestion deployment end to end. It maps descriptor
// fields straight into a Catalog dataset without reading instrument headers.
package bltest

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/als-computing/ingest-core/internal/catalog"
	"github.com/als-computing/ingest-core/internal/descriptor"
	"github.com/als-computing/ingest-core/internal/extractor"
)

// Spec is the registry name of this strategy.
const Spec = "bltest"

func init() {
	extractor.Register(Spec, &strategy{})
}

type strategy struct{}

func (s *strategy) Extract(ctx context.Context, req *extractor.Request) (*descriptor.Descriptor, error) {
	d := req.Descriptor

	name := d.Name
	if name == "" {
		name = filepath.Base(req.DatasetPath)
	}

	access := catalog.AccessControlsFor(req.OwnerUsername, d.BeamlineID, d.ProposalID)
	create := &catalog.DatasetCreate{
		Name:                  name,
		Description:           d.Description,
		Owner:                 req.OwnerUsername,
		OwnerGroup:            access.OwnerGroup,
		AccessGroups:          access.AccessGroups,
		CreationTime:          time.Now().UTC().Format(time.RFC3339),
		SourceFolder:          req.DatasetPath,
		Size:                  req.Manifest.TotalSizeBytes,
		NumberOfFiles:         req.Manifest.Len(),
		PrincipalInvestigator: d.PrincipalInvestigator,
		Type:                  "raw",
	}

	datasetID, err := req.Catalog.CreateDataset(ctx, create)
	if err != nil {
		return nil, err
	}
	req.Log.Info().Str("dataset_id", datasetID).Msg("created catalog dataset")

	err = req.Catalog.CreateDatablock(ctx, &catalog.DatablockCreate{
		DatasetID: datasetID,
		Size:      req.Manifest.TotalSizeBytes,
		DataFiles: catalog.DataFilesFromManifest(req.Manifest),
	})
	if err != nil {
		return nil, fmt.Errorf("datablock for %s: %w", datasetID, err)
	}

	if err := s.attachThumbnail(ctx, req, datasetID, name); err != nil {
		// A missing or unreadable image is not worth failing the run over.
		req.Log.Warn().Err(err).Msg("could not attach thumbnail")
	}

	d.Catalog.DatasetID = datasetID
	return d, nil
}

// attachThumbnail uploads the first image file in the manifest, if any.
func (s *strategy) attachThumbnail(ctx context.Context, req *extractor.Request, datasetID, caption string) error {
	for _, e := range req.Manifest.Files {
		ext := strings.ToLower(filepath.Ext(e.Path))
		if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(req.DatasetPath, filepath.FromSlash(e.Path)))
		if err != nil {
			return err
		}
		return req.Catalog.CreateAttachment(ctx, datasetID, &catalog.AttachmentCreate{
			Thumbnail: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
			Caption:   caption,
		})
	}
	return nil
}
