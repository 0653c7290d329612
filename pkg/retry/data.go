package retry

import (
	"math/rand"
	"time"

	"github.com/rohmanhakim/site-crawler/pkg/timeutil"
)

// RetryParam configures Retry. BaseDelay is added to every wait; the
// exponential part and jitter come from BackoffParam and Jitter.
type RetryParam struct {
	BaseDelay    time.Duration
	Jitter       time.Duration
	RandomSeed   int64
	MaxAttempts  int
	BackoffParam timeutil.BackoffParam
}

func NewRetryParam(
	baseDelay time.Duration,
	jitter time.Duration,
	randomSeed int64,
	maxAttempts int,
	backoffParam timeutil.BackoffParam,
) RetryParam {
	return RetryParam{
		BaseDelay:    baseDelay,
		Jitter:       jitter,
		RandomSeed:   randomSeed,
		MaxAttempts:  maxAttempts,
		BackoffParam: backoffParam,
	}
}

// delay is the wait after the given failed attempt (1-based).
func (p RetryParam) delay(attempt int, rng *rand.Rand) time.Duration {
	return p.BaseDelay + timeutil.ExponentialBackoffDelay(attempt, p.Jitter, *rng, p.BackoffParam)
}
