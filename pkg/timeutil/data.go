package timeutil

import "time"

// BackoffParam describes a capped exponential curve: the n-th delay is
// initial * multiplier^(n-1), never above max.
type BackoffParam struct {
	initialDuration time.Duration
	multiplier      float64
	maxDuration     time.Duration
}

// NewBackoffParam clamps a multiplier below 1 to 1 and a max below the
// initial duration to the initial duration, so the curve never shrinks.
func NewBackoffParam(
	initialDuration time.Duration,
	multiplier float64,
	maxDuration time.Duration,
) BackoffParam {
	if initialDuration < 0 {
		initialDuration = 0
	}
	if multiplier < 1 {
		multiplier = 1
	}
	if maxDuration < initialDuration {
		maxDuration = initialDuration
	}
	return BackoffParam{
		initialDuration: initialDuration,
		multiplier:      multiplier,
		maxDuration:     maxDuration,
	}
}

func (b BackoffParam) InitialDuration() time.Duration { return b.initialDuration }

func (b BackoffParam) Multiplier() float64 { return b.multiplier }

func (b BackoffParam) MaxDuration() time.Duration { return b.maxDuration }
