package scheduler

import (
	"fmt"

	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

type CrawlingErrorCause string

const (
	ErrCauseAlreadyRunning CrawlingErrorCause = "a crawl is already running"
	ErrCauseMalformedHost  CrawlingErrorCause = "malformed host"
	ErrCauseUnreachable    CrawlingErrorCause = "host unreachable"
	ErrCausePortScanFailed CrawlingErrorCause = "port scan failed"
	ErrCauseShutdown       CrawlingErrorCause = "crawler is shut down"
)

// CrawlingError is returned synchronously by Start when a crawl cannot begin.
type CrawlingError struct {
	Message   string
	Retryable bool
	Cause     CrawlingErrorCause
}

func (e *CrawlingError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("crawling error: %s", e.Cause)
	}
	return fmt.Sprintf("crawling error: %s: %s", e.Cause, e.Message)
}

func (e *CrawlingError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *CrawlingError) IsRetryable() bool {
	return e.Retryable
}

// Reason is the operator-facing explanation.
func (e *CrawlingError) Reason() string {
	return string(e.Cause)
}

func mapCrawlingErrorToMetadataCause(err *CrawlingError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnreachable, ErrCausePortScanFailed:
		return metadata.CauseNetworkFailure
	case ErrCauseMalformedHost:
		return metadata.CauseContentInvalid
	case ErrCauseAlreadyRunning, ErrCauseShutdown:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
