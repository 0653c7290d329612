package scheduler

import (
	"github.com/rohmanhakim/site-crawler/internal/stats"
)

// State is the lifecycle of the crawl engine.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "RUNNING"
	}
	return "IDLE"
}

// Result describes the most recent finished crawl.
type Result struct {
	Snapshot stats.Snapshot
	// ReportPath is empty when the statistics page could not be written.
	ReportPath string
	// Err is the statistics page or notification failure, if any.
	Err error
}
