// Package auditerr defines the one typed, build-halting error kind an
// audit may raise. It is distinct from an AuditResult.Status of FAIL:
// a processing error means the input could not be read or understood at
// all, not that it was read and violated the rules.
package auditerr

import "fmt"

// ProcessingError is raised when an audit's input is missing, unreadable,
// or malformed, or when the aggregator cannot write its report. The
// original cause is always preserved via errors.Unwrap.
type ProcessingError struct {
	// Audit is the name of the audit that failed to process its input,
	// or "" for aggregator-level errors.
	Audit string
	// Path is the file or directory the error concerns, when known.
	Path string
	// Cause is the underlying error, always non-nil.
	Cause error
}

// New builds a ProcessingError.
func New(audit, path string, cause error) *ProcessingError {
	return &ProcessingError{Audit: audit, Path: path, Cause: cause}
}

// Error implements error.
func (e *ProcessingError) Error() string {
	switch {
	case e.Audit != "" && e.Path != "":
		return fmt.Sprintf("%s: processing %q: %v", e.Audit, e.Path, e.Cause)
	case e.Audit != "":
		return fmt.Sprintf("%s: %v", e.Audit, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("processing %q: %v", e.Path, e.Cause)
	default:
		return e.Cause.Error()
	}
}

// Unwrap exposes the original cause for errors.Is/errors.As.
func (e *ProcessingError) Unwrap() error {
	return e.Cause
}
