package portscan

import (
	"fmt"

	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

type ScanErrorCause string

const (
	ErrCauseInvalidRange ScanErrorCause = "invalid port range"
	ErrCauseCancelled    ScanErrorCause = "scan cancelled"
)

type ScanError struct {
	Message   string
	Retryable bool
	Cause     ScanErrorCause
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("port scan error: %s: %s", e.Cause, e.Message)
}

func (e *ScanError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapScanErrorToMetadataCause(err *ScanError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseInvalidRange:
		return metadata.CauseInvariantViolation
	case ErrCauseCancelled:
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseUnknown
	}
}
