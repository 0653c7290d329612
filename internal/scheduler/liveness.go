package scheduler

import "sync"

/*
liveness counts outstanding tasks per pool.

A counter is incremented before its task becomes visible to a queue and
decremented only after the task body has fully finished (or was aborted).
Both counters share one mutex so a quiescence check reads them as one
consistent snapshot.
*/
type liveness struct {
	mu       sync.Mutex
	fetches  int
	analyzes int
}

func (l *liveness) addFetch() {
	l.mu.Lock()
	l.fetches++
	l.mu.Unlock()
}

// doneFetch reports false if the counter would have gone negative.
func (l *liveness) doneFetch() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fetches == 0 {
		return false
	}
	l.fetches--
	return true
}

func (l *liveness) addAnalyze() {
	l.mu.Lock()
	l.analyzes++
	l.mu.Unlock()
}

func (l *liveness) doneAnalyze() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.analyzes == 0 {
		return false
	}
	l.analyzes--
	return true
}

func (l *liveness) snapshot() (fetches, analyzes int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches, l.analyzes
}

func (l *liveness) idle() bool {
	f, a := l.snapshot()
	return f == 0 && a == 0
}
