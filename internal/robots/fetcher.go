package robots

import (
	"context"
	"fmt"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/fetcher"
	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
)

/*
RobotsFetcher

Responsibilities:
- Fetch <host>/robots.txt through the crawler's own wire client
- Parse the body into Rules

Any failure, including a non-200 answer, is returned as a *RobotsError so
the caller can fall back to an unrestricted crawl.
*/
type RobotsFetcher struct {
	metadataSink metadata.MetadataSink
	client       fetcher.Fetcher
}

func NewRobotsFetcher(metadataSink metadata.MetadataSink, client fetcher.Fetcher) *RobotsFetcher {
	return &RobotsFetcher{
		metadataSink: metadataSink,
		client:       client,
	}
}

func (f *RobotsFetcher) Fetch(ctx context.Context, base urlutil.URL) (Rules, *RobotsError) {
	robotsURL := base.SetPath("/robots.txt")

	resp, err := f.client.Do(ctx, fetcher.NewRequest(fetcher.MethodGet, robotsURL, ""))
	if err != nil {
		return Rules{}, f.fail(robotsURL, &RobotsError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseUnreachable,
		})
	}
	if resp.Code() != fetcher.StatusOK {
		return Rules{}, f.fail(robotsURL, &RobotsError{
			Message:   fmt.Sprintf("status %d", resp.Code()),
			Retryable: false,
			Cause:     ErrCauseNotAvailable,
		})
	}

	return ParseRobotsTxt(string(resp.Body())), nil
}

func (f *RobotsFetcher) fail(robotsURL urlutil.URL, err *RobotsError) *RobotsError {
	f.metadataSink.RecordError(
		time.Now(),
		"robots",
		"RobotsFetcher.Fetch",
		mapRobotsErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, robotsURL.String()),
		},
	)
	return err
}
