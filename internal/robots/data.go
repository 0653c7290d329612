package robots

import "github.com/rohmanhakim/site-crawler/pkg/urlutil"

// Rules are the raw Allow and Disallow paths of one robots.txt, in file order.
// User-agent groups are not distinguished.
type Rules struct {
	Allows    []string
	Disallows []string
}

func (r Rules) IsEmpty() bool {
	return len(r.Allows) == 0 && len(r.Disallows) == 0
}

type DecisionReason string

const (
	AllowedByRobots    DecisionReason = "allowed_by_robots"
	DisallowedByRobots DecisionReason = "disallowed_by_robots"
	EmptyRuleSet       DecisionReason = "empty_rule_set"
	NoMatchingRules    DecisionReason = "no_matching_rules"
	ExternalHost       DecisionReason = "external_host"
	NotEnforced        DecisionReason = "not_enforced"
)

type Decision struct {
	Url urlutil.URL

	Allowed bool

	// Why this decision was made (for logging/debugging)
	Reason DecisionReason

	// The robots.txt line responsible, if any
	Rule string
}
