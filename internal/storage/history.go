package storage

import (
	"os"
	"path/filepath"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
)

// ReadMarkdown loads a stored statistics page and converts it back to
// Markdown for terminal display. name must be a bare report filename.
func (s *LocalSink) ReadMarkdown(name string) (string, failure.ClassifiedError) {
	if filepath.Base(name) != name || !IsReportName(name) {
		return "", &StorageError{
			Message:   name,
			Retryable: false,
			Cause:     ErrCauseInvalidReportName,
		}
	}

	fullPath := filepath.Join(s.outputDir, name)
	page, err := os.ReadFile(fullPath)
	if err != nil {
		return "", &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseReadFailure,
			Path:      fullPath,
		}
	}

	md, convErr := htmlToMarkdown(string(page))
	if convErr != nil {
		return "", &StorageError{
			Message:   convErr.Error(),
			Retryable: false,
			Cause:     ErrCauseRenderFailure,
			Path:      fullPath,
		}
	}
	return md, nil
}

func htmlToMarkdown(page string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return conv.ConvertString(page)
}
