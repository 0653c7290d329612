package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/rohmanhakim/site-crawler/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier_WritesSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := NewLogNotifier(logger).Notify(context.Background(), Completion{
		Snapshot: stats.Snapshot{
			Host:  "example.com",
			Pages: stats.ClassTotal{Count: 7},
		},
		ReportPath: "statistics/example.com_20260101_000000.html",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "crawl completed")
	assert.Contains(t, out, "host=example.com")
	assert.Contains(t, out, "pages=7")
	assert.Contains(t, out, "report=statistics/example.com_20260101_000000.html")
}

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	var calls []string
	errA := errors.New("a failed")

	m := Multi{
		Func(func(ctx context.Context, c Completion) error {
			calls = append(calls, "a")
			return errA
		}),
		nil,
		Func(func(ctx context.Context, c Completion) error {
			calls = append(calls, "b:"+c.Snapshot.Host)
			return nil
		}),
	}

	err := m.Notify(context.Background(), Completion{Snapshot: stats.Snapshot{Host: "h"}})
	assert.ErrorIs(t, err, errA)
	assert.Equal(t, []string{"a", "b:h"}, calls)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Notify(context.Background(), Completion{}))
}
