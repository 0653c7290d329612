package robots

import (
	"fmt"

	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseUnreachable    RobotsErrorCause = "robots.txt unreachable"
	ErrCauseNotAvailable   RobotsErrorCause = "robots.txt not available"
	ErrCauseInvalidPattern RobotsErrorCause = "invalid rule pattern"
)

type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapRobotsErrorToMetadataCause maps robots-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapRobotsErrorToMetadataCause(err *RobotsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnreachable:
		return metadata.CauseNetworkFailure
	case ErrCauseNotAvailable, ErrCauseInvalidPattern:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
