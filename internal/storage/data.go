package storage

import (
	"regexp"
	"time"
)

// reportTimeLayout renders as <yyyymmdd>_<hhmmss>.
const reportTimeLayout = "20060102_150405"

const reportExt = ".html"

var reportNamePattern = regexp.MustCompile(`^.+_\d{8}_\d{6}\.html$`)

// ReportName returns the statistics page filename for a crawl of host
// finished at t.
func ReportName(host string, t time.Time) string {
	return host + "_" + t.Format(reportTimeLayout) + reportExt
}

// IsReportName reports whether name follows the statistics page naming.
func IsReportName(name string) bool {
	return reportNamePattern.MatchString(name)
}

type WriteResult struct {
	name string
	path string
}

func NewWriteResult(name string, path string) WriteResult {
	return WriteResult{
		name: name,
		path: path,
	}
}

// Name is the report filename without directory.
func (w WriteResult) Name() string {
	return w.name
}

func (w WriteResult) Path() string {
	return w.path
}
