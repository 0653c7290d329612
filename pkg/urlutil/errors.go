package urlutil

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

type URLErrorCause string

const (
	ErrCauseMalformedURL      URLErrorCause = "malformed url"
	ErrCauseUnsupportedScheme URLErrorCause = "unsupported scheme"
)

type URLError struct {
	Message string
	Cause   URLErrorCause
}

func (e *URLError) Error() string {
	return fmt.Sprintf("url error: %s: %s", e.Cause, e.Message)
}

// Severity is always fatal: a URL that cannot be parsed never becomes valid.
func (e *URLError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// IsMalformed reports whether err is a URLError for unparseable input.
func IsMalformed(err error) bool {
	var ue *URLError
	return errors.As(err, &ue) && ue.Cause == ErrCauseMalformedURL
}

// IsUnsupportedScheme reports whether err is a URLError for a non-http(s) scheme.
func IsUnsupportedScheme(err error) bool {
	var ue *URLError
	return errors.As(err, &ue) && ue.Cause == ErrCauseUnsupportedScheme
}
