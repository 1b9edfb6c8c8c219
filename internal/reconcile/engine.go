// Package reconcile converges the Tracker registry onto the state a
// descriptor declares: beamline/proposal/dataset/instance upserts plus a
// three-way per-file diff. Every step is independently idempotent, so
// re-running over an unchanged dataset is a no-op.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/als-computing/ingest-core/internal/descriptor"
	"github.com/als-computing/ingest-core/internal/tracker"
)

// Engine reconciles one dataset against the Tracker.
type Engine struct {
	tracker tracker.API
	share   string
	runID   string
	log     zerolog.Logger
}

// NewEngine creates an engine bound to a Tracker client, the storage share
// this deployment writes to, and the current run id.
func NewEngine(api tracker.API, share, runID string, log zerolog.Logger) *Engine {
	return &Engine{tracker: api, share: share, runID: runID, log: log}
}

// Summary counts the Tracker operations a run performed. A second run over an
// unchanged manifest reports zero file operations.
type Summary struct {
	BeamlineCreated bool
	ProposalCreated bool
	DatasetCreated  bool
	InstanceCreated bool
	FilesDeleted    int
	FilesCreated    int
	FilesUpdated    int
}

// ResolveShare looks up the configured share. Its absence is fatal: without
// it the engine cannot say where the files physically live.
func (e *Engine) ResolveShare(ctx context.Context) (*tracker.Share, error) {
	share, err := e.tracker.GetShare(ctx, e.share)
	if err != nil {
		if errors.Is(err, tracker.ErrNotFound) {
			return nil, wrapError(CodeShareNotConfigured, fmt.Errorf("share %q does not exist", e.share))
		}
		return nil, wrapError(CodeShareNotConfigured, err)
	}
	return share, nil
}

// Reconcile runs the full sequence against the Tracker. The descriptor must
// already carry a Catalog dataset id and a non-empty manifest. Steps 1–5 fail
// fast; the file sync plans everything first and aborts on the first remote
// error, leaving the next run to recompute from live Tracker state.
// On success the descriptor's tracker sub-record is updated in place, with
// any existing instance comments preserved.
func (e *Engine) Reconcile(ctx context.Context, d *descriptor.Descriptor, datasetPath string) (*Summary, error) {
	if !d.Ingested() {
		return nil, wrapError(CodeUpsertFailed, fmt.Errorf("descriptor has no catalog dataset id"))
	}
	if d.FileManifest.Len() == 0 {
		return nil, wrapError(CodeUpsertFailed, fmt.Errorf("descriptor has no file manifest"))
	}

	summary := &Summary{}

	// Step 1: beamline upsert. Existing records are reused untouched; an
	// admin makes any downstream correction.
	beamline, created, err := e.upsertBeamline(ctx, d)
	if err != nil {
		return nil, err
	}
	summary.BeamlineCreated = created

	// Step 2: proposal upsert, same pattern.
	proposal, created, err := e.upsertProposal(ctx, d)
	if err != nil {
		return nil, err
	}
	summary.ProposalCreated = created

	// Step 3: share resolution.
	share, err := e.ResolveShare(ctx)
	if err != nil {
		return nil, err
	}

	// Step 4: dataset upsert. The slug goes onto the descriptor right away:
	// if a later step fails, the best-effort persist still records it, so a
	// re-run updates this dataset instead of creating a duplicate.
	dataset, created, err := e.upsertDataset(ctx, d, beamline, proposal)
	if err != nil {
		return nil, err
	}
	summary.DatasetCreated = created
	d.Tracker.TrackerDatasetID = dataset.Slug

	// Step 5: instance upsert, same early linkage.
	instance, created, err := e.upsertInstance(ctx, d, dataset, share, datasetPath)
	if err != nil {
		return nil, err
	}
	summary.InstanceCreated = created
	d.Tracker.InstanceRecordID = instance.ID

	// Step 6: three-way file sync.
	if err := e.syncFiles(ctx, d, instance, summary); err != nil {
		return nil, err
	}

	// Step 7: linkage was recorded as it resolved; instance comments are
	// human-owned and pass through untouched.
	e.log.Info().
		Str("dataset", dataset.Slug).
		Str("instance", instance.ID).
		Int("deleted", summary.FilesDeleted).
		Int("created", summary.FilesCreated).
		Int("updated", summary.FilesUpdated).
		Msg("tracker reconciliation complete")
	return summary, nil
}

func (e *Engine) upsertBeamline(ctx context.Context, d *descriptor.Descriptor) (*tracker.Beamline, bool, error) {
	existing, err := e.tracker.ListBeamlines(ctx, d.BeamlineID)
	if err != nil {
		return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("list beamlines: %w", err))
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}
	created, err := e.tracker.CreateBeamline(ctx, &tracker.BeamlineCreate{
		Name:        d.BeamlineID,
		Description: autoCreatedNote(d),
	})
	if err != nil {
		return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("create beamline: %w", err))
	}
	e.log.Info().Str("beamline", created.Slug).Msg("created beamline record")
	return created, true, nil
}

func (e *Engine) upsertProposal(ctx context.Context, d *descriptor.Descriptor) (*tracker.Proposal, bool, error) {
	existing, err := e.tracker.ListProposals(ctx, d.ProposalID)
	if err != nil {
		return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("list proposals: %w", err))
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}
	created, err := e.tracker.CreateProposal(ctx, &tracker.ProposalCreate{
		Name:        d.ProposalID,
		Description: autoCreatedNote(d),
	})
	if err != nil {
		return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("create proposal: %w", err))
	}
	e.log.Info().Str("proposal", created.Slug).Msg("created proposal record")
	return created, true, nil
}

func (e *Engine) upsertDataset(ctx context.Context, d *descriptor.Descriptor, beamline *tracker.Beamline, proposal *tracker.Proposal) (*tracker.Dataset, bool, error) {
	if slug := d.Tracker.TrackerDatasetID; slug != "" {
		e.log.Info().Str("dataset", slug).Msg("tracker dataset id already present, using existing record")
		dataset, err := e.tracker.GetDataset(ctx, slug)
		if err != nil {
			if errors.Is(err, tracker.ErrNotFound) {
				return nil, false, wrapError(CodeTrackerRecordMissing,
					fmt.Errorf("dataset %q present in descriptor but record not found; wrong server?", slug))
			}
			return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("get dataset: %w", err))
		}
		dataset.CatalogDatasetID = d.Catalog.DatasetID
		dataset.CatalogDateIngested = d.Catalog.DateIngested
		dataset.IngestionRunID = e.runID
		updated, err := e.tracker.UpdateDataset(ctx, dataset)
		if err != nil {
			return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("update dataset: %w", err))
		}
		return updated, false, nil
	}

	created, err := e.tracker.CreateDataset(ctx, &tracker.DatasetCreate{
		Name:                d.Name,
		Description:         d.Description,
		SlugBeamline:        beamline.Slug,
		SlugProposal:        proposal.Slug,
		DateOfAcquisition:   d.DateOfAcquisition,
		CatalogDatasetID:    d.Catalog.DatasetID,
		CatalogDateIngested: d.Catalog.DateIngested,
		IngestionRunID:      e.runID,
	})
	if err != nil {
		return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("create dataset: %w", err))
	}
	e.log.Info().Str("dataset", created.Slug).Msg("created tracker dataset record")
	return created, true, nil
}

func (e *Engine) upsertInstance(ctx context.Context, d *descriptor.Descriptor, dataset *tracker.Dataset, share *tracker.Share, datasetPath string) (*tracker.DatasetInstance, bool, error) {
	instances, err := e.tracker.ListInstances(ctx, tracker.InstanceFilter{
		SlugDataset:    dataset.Slug,
		SlugShare:      share.Slug,
		Path:           datasetPath,
		ExcludeDeleted: true,
	})
	if err != nil {
		return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("list instances: %w", err))
	}
	if len(instances) > 0 {
		// At most one non-deleted instance per key is expected. If more
		// exist, take the newest (the list sorts newest-first) and move on.
		if len(instances) > 1 {
			e.log.Warn().Int("count", len(instances)).Str("path", datasetPath).
				Msg("multiple non-deleted instance records for one path, using newest")
		}
		e.log.Info().Str("instance", instances[0].ID).Msg("instance record with this path already exists, using existing")
		return &instances[0], false, nil
	}

	created, err := e.tracker.CreateInstance(ctx, &tracker.InstanceCreate{
		SlugDataset:    dataset.Slug,
		SlugShare:      share.Slug,
		Path:           datasetPath,
		FilesSizeBytes: d.FileManifest.TotalSizeBytes,
		IngestionRunID: e.runID,
	})
	if err != nil {
		return nil, false, wrapError(CodeUpsertFailed, fmt.Errorf("create instance: %w", err))
	}
	e.log.Info().Str("instance", created.ID).Msg("created dataset instance record")
	return created, true, nil
}

// syncFiles applies the three-way diff. The whole plan is computed before any
// mutation; the first remote error aborts the run. The next run recomputes
// the diff from current Tracker state, so no partial-application bookkeeping
// is needed here.
func (e *Engine) syncFiles(ctx context.Context, d *descriptor.Descriptor, instance *tracker.DatasetInstance, summary *Summary) error {
	records, err := e.tracker.ListInstanceFiles(ctx, instance.ID)
	if err != nil {
		return wrapError(CodeFileSyncFailed, fmt.Errorf("list instance files: %w", err))
	}

	plan := BuildPlan(d.FileManifest, records)
	if plan.Empty() {
		e.log.Info().Msg("file records already match manifest")
		return nil
	}

	for _, r := range plan.Delete {
		if err := e.tracker.DeleteInstanceFile(ctx, r.ID); err != nil {
			return wrapError(CodeFileSyncFailed, fmt.Errorf("delete %s: %w", r.Path, err))
		}
		summary.FilesDeleted++
	}

	for _, entry := range plan.Create {
		_, err := e.tracker.CreateInstanceFile(ctx, &tracker.InstanceFileCreate{
			InstanceID:       instance.ID,
			Path:             entry.Path,
			SizeBytes:        entry.SizeBytes,
			DateLastModified: entry.DateLastModified,
			IsSupplemental:   entry.IsSupplemental,
		})
		if err != nil {
			return wrapError(CodeFileSyncFailed, fmt.Errorf("create %s: %w", entry.Path, err))
		}
		summary.FilesCreated++
	}

	for _, u := range plan.Update {
		record := u.Record
		record.SizeBytes = u.Entry.SizeBytes
		record.DateLastModified = u.Entry.DateLastModified
		record.IsSupplemental = u.Entry.IsSupplemental
		if _, err := e.tracker.UpdateInstanceFile(ctx, &record); err != nil {
			return wrapError(CodeFileSyncFailed, fmt.Errorf("update %s: %w", record.Path, err))
		}
		summary.FilesUpdated++
	}

	return nil
}

func autoCreatedNote(d *descriptor.Descriptor) string {
	return fmt.Sprintf("Auto-created while ingesting dataset %s", d.Catalog.DatasetID)
}
