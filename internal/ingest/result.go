package ingest

import (
	"fmt"

	"github.com/als-computing/ingest-core/internal/descriptor"
	"github.com/als-computing/ingest-core/internal/manifest"
	"github.com/als-computing/ingest-core/internal/reconcile"
)

// Taxonomy classifies a run failure by what the operator must look at.
type Taxonomy string

const (
	// TaxonomyConfig covers failures before any remote mutation: unresolved
	// spec, missing credentials, unconfigured share.
	TaxonomyConfig Taxonomy = "config"
	// TaxonomyValidation covers manifest and descriptor guard failures,
	// also before any remote mutation.
	TaxonomyValidation Taxonomy = "validation"
	// TaxonomyExtraction covers strategy failures; the Catalog may hold
	// partial state depending on where the strategy stopped.
	TaxonomyExtraction Taxonomy = "extraction"
	// TaxonomyReconciliation covers Tracker sync failures; the Catalog
	// dataset exists and the descriptor records it, so the next run retries
	// reconciliation from current Tracker truth.
	TaxonomyReconciliation Taxonomy = "reconciliation"
)

// Failure codes for failures originating in this package. Reconciliation
// failures keep the reconcile package codes.
const (
	CodeUnresolvedSpec       = "E_UNRESOLVED_SPEC"
	CodeMissingCredentials   = "E_MISSING_CREDENTIALS"
	CodeCatalogLoginFailed   = "E_CATALOG_LOGIN_FAILED"
	CodeNoValidFiles         = "E_NO_VALID_FILES"
	CodeDescriptorInvalid    = "E_DESCRIPTOR_INVALID"
	CodeMultipleDescriptors  = "E_MULTIPLE_DESCRIPTORS"
	CodeAlreadyIngested      = "E_ALREADY_INGESTED"
	CodeManifestMismatch     = "E_MANIFEST_MISMATCH"
	CodeRunInProgress        = "E_RUN_IN_PROGRESS"
	CodeExtractionFailed     = "E_EXTRACTION_FAILED"
	CodeReconciliationFailed = "E_RECONCILIATION_FAILED"
)

// Failure is the typed error side of a run result.
type Failure struct {
	Taxonomy Taxonomy
	Code     string
	Err      error
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Err != nil {
		return fmt.Sprintf("%s/%s: %v", f.Taxonomy, f.Code, f.Err)
	}
	return fmt.Sprintf("%s/%s", f.Taxonomy, f.Code)
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(taxonomy Taxonomy, code string, err error) *Failure {
	return &Failure{Taxonomy: taxonomy, Code: code, Err: err}
}

// Result is the discriminated outcome of one run: a descriptor on success, a
// typed failure otherwise. The descriptor may be present on failure too when
// it was persisted best-effort.
type Result struct {
	RunID      string
	Descriptor *descriptor.Descriptor
	Issues     []manifest.Issue
	Summary    *reconcile.Summary
	Failure    *Failure
}

// Succeeded reports whether the run completed.
func (r *Result) Succeeded() bool {
	return r.Failure == nil
}
