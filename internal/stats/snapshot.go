package stats

import "time"

// Snapshot is the frozen statistics of a crawl.
type Snapshot struct {
	Host          string
	RespectRobots bool
	PortScan      bool
	StartedAt     time.Time
	FinishedAt    time.Time
	Title         string

	Pages     ClassTotal
	Images    ClassTotal
	Videos    ClassTotal
	Documents ClassTotal

	InternalLinks   int
	ExternalLinks   int
	ExternalDomains []string

	AverageRTT time.Duration
	RTTSamples int

	OpenPorts      []int
	FailedFetches  int
	DuplicatePages int
}

func (s Snapshot) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Resources is the number of non-page resources counted.
func (s Snapshot) Resources() int {
	return s.Images.Count + s.Videos.Count + s.Documents.Count
}
