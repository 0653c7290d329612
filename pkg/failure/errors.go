package failure

// Severity tells the scheduler whether a failure ends the current unit of
// work or only the attempt that produced it.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

type ClassifiedError interface {
	error
	Severity() Severity
}

// Retryable is implemented by errors that decide their own retry policy
// independently of their severity.
type Retryable interface {
	IsRetryable() bool
}

// IsRetryable reports whether err may succeed on another attempt. Errors
// without an opinion fall back to their severity.
func IsRetryable(err ClassifiedError) bool {
	if err == nil {
		return false
	}
	if r, ok := err.(Retryable); ok {
		return r.IsRetryable()
	}
	return err.Severity() == SeverityRecoverable
}
