// Package extractor dispatches ingestion runs to named, instrument-specific
// extraction strategies. Strategies own all per-instrument heuristics; this
// package only resolves a spec name and enforces the invocation contract.
package extractor

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/als-computing/ingest-core/internal/catalog"
	"github.com/als-computing/ingest-core/internal/descriptor"
	"github.com/als-computing/ingest-core/internal/manifest"
)

var (
	// ErrUnknownSpec means no strategy is registered under the given name.
	// Unknown names fail closed, before any remote credential is used.
	ErrUnknownSpec = errors.New("unknown extractor spec")

	// ErrAlreadyInvoked means the dispatcher was asked to run a second
	// strategy invocation within one run.
	ErrAlreadyInvoked = errors.New("extractor already invoked for this run")

	// ErrNoCatalogDatasetID means the strategy returned without recording a
	// Catalog dataset id, so reconciliation cannot proceed.
	ErrNoCatalogDatasetID = errors.New("extraction did not produce a catalog dataset id")
)

// Request carries everything a strategy may use: the validated manifest, the
// descriptor as loaded (or freshly created), a logged-in Catalog client, and
// a scratch directory that is removed after the run.
type Request struct {
	DatasetPath   string
	Manifest      *manifest.FileManifest
	Descriptor    *descriptor.Descriptor
	Catalog       *catalog.Client
	OwnerUsername string
	TempDir       string
	Log           zerolog.Logger
}

// Strategy is the narrow contract with the out-of-scope per-instrument code.
// Extract reads raw files, creates the Catalog dataset, and returns the
// updated descriptor carrying the new Catalog dataset id.
type Strategy interface {
	Extract(ctx context.Context, req *Request) (*descriptor.Descriptor, error)
}

// Dispatcher invokes one strategy exactly once per run.
type Dispatcher struct {
	invoked bool
}

// Invoke runs the strategy once and validates its result. On error the run
// must abort before the reconciliation engine touches the Tracker.
func (d *Dispatcher) Invoke(ctx context.Context, s Strategy, req *Request) (*descriptor.Descriptor, error) {
	if d.invoked {
		return nil, ErrAlreadyInvoked
	}
	d.invoked = true

	out, err := s.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	if out == nil || !out.Ingested() {
		return nil, ErrNoCatalogDatasetID
	}
	return out, nil
}
