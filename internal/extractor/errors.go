package extractor

import (
	"fmt"

	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

type ExtractionErrorCause string

const (
	ErrCauseInvalidExtension ExtractionErrorCause = "invalid extension"
	ErrCauseUnparsableHTML   ExtractionErrorCause = "unparsable html"
)

type ExtractionError struct {
	Message   string
	Retryable bool
	Cause     ExtractionErrorCause
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %s: %s", e.Cause, e.Message)
}

func (e *ExtractionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapExtractionErrorToMetadataCause maps extractor-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapExtractionErrorToMetadataCause(err *ExtractionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnparsableHTML:
		return metadata.CauseContentInvalid
	case ErrCauseInvalidExtension:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
