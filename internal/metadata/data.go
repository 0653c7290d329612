package metadata

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, continuation, or abort decisions.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure
  - Connect refused, DNS failure, reset, socket timeout, host unreachable.

# CausePolicyDisallow
  - The crawl policy (robots.txt) denied the URL.

# CauseContentInvalid
  - A response or link could not be interpreted: malformed status line,
    malformed URL, unsupported scheme, oversized body.

# CauseStorageFailure
  - Writing or reading the statistics page failed.

# CauseInvariantViolation
  - An internal consistency check failed (e.g. a liveness counter
    would become negative).
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL       AttributeKey = "url"
	AttrHost      AttributeKey = "host"
	AttrPath      AttributeKey = "path"
	AttrPort      AttributeKey = "port"
	AttrMethod    AttributeKey = "method"
	AttrKind      AttributeKey = "kind"
	AttrReferer   AttributeKey = "referer"
	AttrHops      AttributeKey = "hops"
	AttrReason    AttributeKey = "reason"
	AttrField     AttributeKey = "field"
	AttrWritePath AttributeKey = "write_path"
)

type ArtifactKind string

const (
	ArtifactStatisticsPage ArtifactKind = "statistics_page"
)

// SkipReason explains why a discovered URL was not fetched or not counted.
type SkipReason string

const (
	SkipDuplicate         SkipReason = "duplicate"
	SkipPolicyDisallow    SkipReason = "policy_disallow"
	SkipUnsupportedScheme SkipReason = "unsupported_scheme"
	SkipMalformed         SkipReason = "malformed"
	SkipRedirectLimit     SkipReason = "redirect_limit"
	SkipNoContentLength   SkipReason = "no_content_length"
)
