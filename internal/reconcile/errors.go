package reconcile

import "fmt"

const (
	CodeShareNotConfigured   = "E_SHARE_NOT_CONFIGURED"
	CodeTrackerRecordMissing = "E_TRACKER_RECORD_MISSING"
	CodeUpsertFailed         = "E_UPSERT_FAILED"
	CodeFileSyncFailed       = "E_FILE_SYNC_FAILED"
)

// Error wraps reconciliation failures with a semantic code. Transport
// failures stay wrapped inside Err; the code never claims a semantic failure
// for what was a timeout.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func wrapError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}
