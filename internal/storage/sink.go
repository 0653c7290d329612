package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/internal/stats"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
	"github.com/rohmanhakim/site-crawler/pkg/fileutil"
)

/*
Responsibilities
- Persist one statistics page per finished crawl
- List the crawling history
- Read a stored page back as Markdown

Output Characteristics
- Flat directory layout, one file per crawl
- Filenames sort chronologically per host
- Pages never overwrite each other: a taken name moves the timestamp
  forward one second at a time
*/

// maxNameAttempts bounds the search for a free report name.
const maxNameAttempts = 60

type Sink interface {
	Write(snapshot stats.Snapshot) (WriteResult, failure.ClassifiedError)
	History() ([]string, failure.ClassifiedError)
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
	outputDir    string
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
	outputDir string,
) *LocalSink {
	return &LocalSink{
		metadataSink: metadataSink,
		outputDir:    outputDir,
	}
}

func (s *LocalSink) OutputDir() string {
	return s.outputDir
}

func (s *LocalSink) Write(snapshot stats.Snapshot) (WriteResult, failure.ClassifiedError) {
	writeResult, err := s.write(snapshot)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"LocalSink.Write",
			mapStorageErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrHost, snapshot.Host),
				metadata.NewAttr(metadata.AttrWritePath, err.Path),
			},
		)
		return WriteResult{}, err
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactStatisticsPage,
		writeResult.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrHost, snapshot.Host),
		},
	)
	return writeResult, nil
}

// History returns the stored statistics page filenames in ascending order.
func (s *LocalSink) History() ([]string, failure.ClassifiedError) {
	names, err := s.history()
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *LocalSink) history() ([]string, *StorageError) {
	names, err := fileutil.ListMatching(s.outputDir, reportNamePattern)
	if err != nil {
		return nil, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseReadFailure,
			Path:      s.outputDir,
		}
	}
	return names, nil
}

func (s *LocalSink) write(snapshot stats.Snapshot) (WriteResult, *StorageError) {
	if err := fileutil.EnsureDir(s.outputDir); err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      s.outputDir,
		}
	}

	// The history is read before writing so the new page never links to itself.
	history, histErr := s.history()
	if histErr != nil {
		return WriteResult{}, histErr
	}

	source, err := buildMarkdown(snapshot, latestReports(history))
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRenderFailure,
		}
	}
	page := renderHTML("Crawl statistics for "+snapshot.Host, source)

	finishedAt := snapshot.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := ReportName(snapshot.Host, finishedAt.Add(time.Duration(attempt)*time.Second))
		fullPath := filepath.Join(s.outputDir, name)

		err := writeExclusive(fullPath, page)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			cause := ErrCauseWriteFailure
			retryable := false
			if errors.Is(err, syscall.ENOSPC) {
				cause = ErrCauseDiskFull
				retryable = true
			}
			return WriteResult{}, &StorageError{
				Message:   err.Error(),
				Retryable: retryable,
				Cause:     cause,
				Path:      fullPath,
			}
		}
		return NewWriteResult(name, fullPath), nil
	}

	return WriteResult{}, &StorageError{
		Message:   fmt.Sprintf("no free report name for %s within %d attempts", snapshot.Host, maxNameAttempts),
		Retryable: false,
		Cause:     ErrCauseWriteFailure,
		Path:      s.outputDir,
	}
}

// writeExclusive creates path and writes data, failing with fs.ErrExist if
// path is already taken. A partially written file is removed.
func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// latestReports maps each host in names to its newest report filename.
// names must be sorted ascending.
func latestReports(names []string) map[string]string {
	latest := make(map[string]string, len(names))
	for _, name := range names {
		host, ok := hostOf(name)
		if !ok {
			continue
		}
		latest[host] = name
	}
	return latest
}

// hostOf strips the _<yyyymmdd>_<hhmmss>.html suffix.
func hostOf(name string) (string, bool) {
	if !IsReportName(name) {
		return "", false
	}
	suffixLen := len("_") + len(reportTimeLayout) + len(reportExt)
	return name[:len(name)-suffixLen], true
}
