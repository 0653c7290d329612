package robots

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

type allowRule struct {
	raw     string
	pattern glob.Glob
}

type denyRule struct {
	raw    string
	prefix string
	exact  bool
}

// Policy is the compiled, read-only form of Rules for one host.
// Allow rules must match the whole path ("*" is the only wildcard and a
// trailing "$" changes nothing) and win over deny rules. Deny rules are path
// prefixes, cut at their first "*".
type Policy struct {
	host   string
	allows []allowRule
	denies []denyRule
}

func Compile(host string, rules Rules) (*Policy, error) {
	p := &Policy{host: strings.ToLower(host)}

	for _, raw := range rules.Allows {
		g, err := glob.Compile(toGlob(raw))
		if err != nil {
			return nil, &RobotsError{
				Message:   fmt.Sprintf("allow %q: %v", raw, err),
				Retryable: false,
				Cause:     ErrCauseInvalidPattern,
			}
		}
		p.allows = append(p.allows, allowRule{raw: raw, pattern: g})
	}

	for _, raw := range rules.Disallows {
		rule := denyRule{raw: raw}
		path := raw
		if i := strings.IndexByte(path, '*'); i >= 0 {
			path = path[:i]
		} else if strings.HasSuffix(path, "$") {
			path = strings.TrimSuffix(path, "$")
			rule.exact = true
		}
		rule.prefix = rootPath(path)
		p.denies = append(p.denies, rule)
	}

	return p, nil
}

func (p *Policy) Host() string {
	return p.host
}

// Decide checks u against the policy. URLs on other hosts are always allowed.
func (p *Policy) Decide(u urlutil.URL) Decision {
	if u.Host() != p.host {
		return Decision{Url: u, Allowed: true, Reason: ExternalHost}
	}
	if len(p.allows) == 0 && len(p.denies) == 0 {
		return Decision{Url: u, Allowed: true, Reason: EmptyRuleSet}
	}

	path := u.Path()
	for _, rule := range p.allows {
		if rule.pattern.Match(path) {
			return Decision{Url: u, Allowed: true, Reason: AllowedByRobots, Rule: rule.raw}
		}
	}
	for _, rule := range p.denies {
		if (rule.exact && path == rule.prefix) || (!rule.exact && strings.HasPrefix(path, rule.prefix)) {
			return Decision{Url: u, Allowed: false, Reason: DisallowedByRobots, Rule: rule.raw}
		}
	}
	return Decision{Url: u, Allowed: true, Reason: NoMatchingRules}
}

// toGlob translates a robots path pattern into a full-match glob pattern.
func toGlob(raw string) string {
	raw = strings.TrimSuffix(raw, "$")
	if !strings.HasPrefix(raw, "*") {
		raw = rootPath(raw)
	}

	parts := strings.Split(raw, "*")
	for i, part := range parts {
		parts[i] = glob.QuoteMeta(part)
	}
	return strings.Join(parts, "*")
}
