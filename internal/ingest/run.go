// Package ingest orchestrates one dataset ingestion run: manifest build,
// descriptor guard, extraction dispatch, Tracker reconciliation, and the
// persist-always write-back.
package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/als-computing/ingest-core/internal/archive"
	"github.com/als-computing/ingest-core/internal/catalog"
	"github.com/als-computing/ingest-core/internal/config"
	"github.com/als-computing/ingest-core/internal/descriptor"
	"github.com/als-computing/ingest-core/internal/extractor"
	"github.com/als-computing/ingest-core/internal/httpclient"
	"github.com/als-computing/ingest-core/internal/manifest"
	"github.com/als-computing/ingest-core/internal/reconcile"
	"github.com/als-computing/ingest-core/internal/runlog"
	"github.com/als-computing/ingest-core/internal/tracker"
)

// Runner executes ingestion runs. The zero value is usable; the exported
// fields exist so tests can redirect logging and stub the registries.
type Runner struct {
	// Out receives the run log; defaults to os.Stderr.
	Out io.Writer

	// CatalogTransport / TrackerTransport override HTTP client settings.
	CatalogTransport *httpclient.Config
	TrackerTransport *httpclient.Config

	// TrackerOverride substitutes the Tracker API, bypassing TrackerURL.
	TrackerOverride tracker.API
}

// Run performs one ingestion run over the configured dataset. Every return
// path yields a discriminated Result; no error escapes.
func (rn *Runner) Run(ctx context.Context, cfg *config.Run) *Result {
	runID := uuid.NewString()
	out := rn.Out
	if out == nil {
		out = os.Stderr
	}
	log, capture := runlog.New(out)
	log = log.With().Str("run_id", runID).Logger()

	result := &Result{RunID: runID}

	if err := cfg.ResolveEnv(log); err != nil {
		result.Failure = fail(TaxonomyConfig, CodeMissingCredentials, err)
		return result
	}

	// The spec must resolve before any remote credential is used.
	strategy, err := extractor.Resolve(cfg.Spec)
	if err != nil {
		log.Error().Err(err).Msg("cannot resolve ingester spec")
		result.Failure = fail(TaxonomyConfig, CodeUnresolvedSpec, err)
		return result
	}
	log.Info().Str("spec", cfg.Spec).Msg("using ingester spec")

	fullPath := cfg.FullDatasetPath(log)
	if abs, absErr := filepath.Abs(fullPath); absErr == nil {
		fullPath = abs
	}

	// Manifest build and validation.
	builder := manifest.NewBuilder(log)
	builder.Exclude = func(rel string) bool {
		return descriptor.IsEngineFile(filepath.Base(rel))
	}
	built, issues, err := builder.Build(fullPath, cfg.Files)
	result.Issues = issues
	if err != nil {
		log.Error().Err(err).Msg("no valid files or folders to ingest")
		result.Failure = fail(TaxonomyValidation, CodeNoValidFiles, err)
		return result
	}

	// Descriptor load and double-ingestion guard, under the advisory lock so
	// a concurrent run over the same path cannot slip past the check.
	store := descriptor.NewStore(log)
	release, err := store.LockRun(fullPath)
	if err != nil {
		if errors.Is(err, descriptor.ErrRunInProgress) {
			result.Failure = fail(TaxonomyValidation, CodeRunInProgress, err)
		} else {
			result.Failure = fail(TaxonomyValidation, CodeDescriptorInvalid, err)
		}
		return result
	}
	defer release()

	d, err := store.Load(fullPath)
	switch {
	case errors.Is(err, descriptor.ErrNotFound):
		log.Info().Msg("no existing descriptor file, treating as first ingestion")
		d = &descriptor.Descriptor{}
	case errors.Is(err, descriptor.ErrMultipleDescriptors):
		log.Error().Err(err).Msg("found multiple descriptor files, stopping")
		result.Failure = fail(TaxonomyValidation, CodeMultipleDescriptors, err)
		return result
	case err != nil:
		result.Failure = fail(TaxonomyValidation, CodeDescriptorInvalid, err)
		return result
	}

	if err := descriptor.ValidateForIngestion(d, built.Files); err != nil {
		log.Error().Err(err).Msg("descriptor refuses ingestion")
		switch {
		case errors.Is(err, descriptor.ErrAlreadyIngested):
			result.Failure = fail(TaxonomyValidation, CodeAlreadyIngested, err)
		default:
			result.Failure = fail(TaxonomyValidation, CodeManifestMismatch, err)
		}
		return result
	}

	merged := descriptor.Merge(d.FileManifest, built.Files)
	d.FileManifest = merged.Manifest
	if merged.Appended > 0 && d.FileManifest.Len() > merged.Appended {
		log.Info().Int("appended", merged.Appended).Msg("merged incoming files into existing manifest")
	}

	// Catalog login.
	catalogClient := catalog.NewClient(cfg.CatalogURL, rn.CatalogTransport)
	if err := catalogClient.Login(ctx, cfg.CatalogUsername, cfg.CatalogPassword); err != nil {
		log.Error().Err(err).Msg("error logging in to catalog, cannot proceed")
		result.Failure = fail(TaxonomyConfig, CodeCatalogLoginFailed, err)
		return result
	}

	// Tracker connection and share resolution. The share is checked now,
	// before extraction, so a misconfiguration cannot surface only after an
	// irreversible Catalog ingestion.
	var engine *reconcile.Engine
	trackerAPI := rn.TrackerOverride
	if trackerAPI == nil && cfg.TrackerEnabled() {
		trackerAPI = tracker.NewClient(cfg.TrackerURL, cfg.TrackerUsername, cfg.TrackerPassword, rn.TrackerTransport)
	}
	if trackerAPI != nil {
		engine = reconcile.NewEngine(trackerAPI, cfg.TrackerShare, runID, log)
		if _, err := engine.ResolveShare(ctx); err != nil {
			log.Error().Err(err).Str("share", cfg.TrackerShare).Msg("tracker share does not exist")
			result.Failure = fail(TaxonomyConfig, reconcile.CodeShareNotConfigured, err)
			return result
		}
	} else {
		log.Info().Msg("tracker client not available, skipping tracker records updates")
	}

	// Extraction: exactly one invocation, abort before reconciliation on
	// error.
	tempDir, err := os.MkdirTemp("", "ingest-*")
	if err != nil {
		result.Failure = fail(TaxonomyExtraction, CodeExtractionFailed, err)
		return result
	}
	defer os.RemoveAll(tempDir)

	dispatcher := &extractor.Dispatcher{}
	d, err = dispatcher.Invoke(ctx, strategy, &extractor.Request{
		DatasetPath:   fullPath,
		Manifest:      d.FileManifest,
		Descriptor:    d,
		Catalog:       catalogClient,
		OwnerUsername: cfg.OwnerUsername,
		TempDir:       tempDir,
		Log:           log,
	})
	if err != nil {
		log.Error().Err(err).Msg("error running ingester function, partial import may have occurred")
		result.Failure = fail(TaxonomyExtraction, CodeExtractionFailed, err)
		return result
	}

	d.Catalog.RegistryInstance = cfg.CatalogURL
	d.Catalog.DateIngested = manifest.FormatModTime(time.Now())
	d.Catalog.ExtractorUsed = cfg.Spec
	result.Descriptor = d

	// From here on the descriptor is persisted no matter what, so partial
	// progress is observable on the next run.
	if engine != nil {
		// Recorded up front so the snapshot persisted on a reconciliation
		// failure still says which Tracker the partial linkage belongs to.
		d.Tracker.RegistryInstance = cfg.TrackerURL
		summary, err := engine.Reconcile(ctx, d, cfg.DatasetPath)
		if err != nil {
			log.Error().Err(err).Msg("tracker reconciliation failed; catalog and tracker are inconsistent until a re-run")
			taxonomy := TaxonomyReconciliation
			var rerr *reconcile.Error
			code := CodeReconciliationFailed
			if errors.As(err, &rerr) {
				code = rerr.Code
			}
			result.Failure = fail(taxonomy, code, err)
			rn.persist(store, d, fullPath, capture, log)
			return result
		}
		result.Summary = summary
	}

	rn.persist(store, d, fullPath, capture, log)

	if arch, err := archive.New(cfg.Archive); err != nil {
		log.Warn().Err(err).Msg("could not create run archive")
	} else if arch != nil {
		if err := arch.StoreRun(ctx, runID, d, capture.Lines()); err != nil {
			log.Warn().Err(err).Msg("could not archive run artifacts")
		}
	}

	log.Info().Msg("ingestion finished")
	return result
}

// persist embeds the captured run log and writes the descriptor back.
// A write failure here is a warning: the registries already hold the truth
// and the next run will reconstruct linkage from them.
func (rn *Runner) persist(store *descriptor.Store, d *descriptor.Descriptor, fullPath string, capture *runlog.Capture, log zerolog.Logger) {
	d.Catalog.RunLog = capture.Lines()
	if err := store.Persist(d, fullPath); err != nil {
		log.Warn().Err(err).Str("path", fullPath).Msg("could not write updated descriptor file")
	}
}
