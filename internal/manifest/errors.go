package manifest

import "errors"

var (
	// ErrNoValidFiles means every candidate file was rejected; a dataset
	// cannot be ingested without at least one valid file.
	ErrNoValidFiles = errors.New("no valid files to ingest")

	// ErrDuplicatePath means two entries share a path, which violates the
	// manifest key invariant.
	ErrDuplicatePath = errors.New("duplicate manifest path")
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is a non-fatal finding produced while building a manifest, kept for
// the run log rather than raised as an error.
type Issue struct {
	Severity Severity
	Path     string
	Msg      string
}
