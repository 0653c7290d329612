package robots

import (
	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

/*
Responsibilities

- Hold the crawl policy for the duration of one crawl
- Answer allow/deny for every URL before it is fetched
- Record denials

A Robot without a policy (robots.txt unavailable, or the crawl ignores
robots) permits everything.
*/
type Robot struct {
	metadataSink metadata.MetadataSink
	policy       *Policy
}

func NewRobot(metadataSink metadata.MetadataSink, policy *Policy) *Robot {
	return &Robot{
		metadataSink: metadataSink,
		policy:       policy,
	}
}

// Enforcing reports whether a policy is in effect.
func (r *Robot) Enforcing() bool {
	return r.policy != nil
}

func (r *Robot) Decide(u urlutil.URL) Decision {
	if r.policy == nil {
		return Decision{Url: u, Allowed: true, Reason: NotEnforced}
	}

	decision := r.policy.Decide(u)
	if !decision.Allowed {
		r.metadataSink.RecordSkip(metadata.SkipPolicyDisallow, u.String(), []metadata.Attribute{
			metadata.NewAttr(metadata.AttrReason, string(decision.Reason)),
			metadata.NewAttr(metadata.AttrField, decision.Rule),
		})
	}
	return decision
}
