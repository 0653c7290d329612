package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rohmanhakim/site-crawler/internal/stats"
)

// Completion is handed to notifiers once per finished crawl.
type Completion struct {
	Snapshot stats.Snapshot
	// ReportPath is empty when the statistics page could not be written.
	ReportPath string
}

// Notifier receives crawl completions. Notify runs while the scheduler still
// holds its state lock, so implementations must not call back into the
// scheduler and should return promptly.
type Notifier interface {
	Notify(ctx context.Context, completion Completion) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, completion Completion) error

func (f Func) Notify(ctx context.Context, completion Completion) error {
	return f(ctx, completion)
}

// LogNotifier writes a one-line completion summary.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, completion Completion) error {
	s := completion.Snapshot
	n.logger.InfoContext(ctx, "crawl completed",
		slog.String("host", s.Host),
		slog.Int("pages", s.Pages.Count),
		slog.Int("resources", s.Resources()),
		slog.Int("external_domains", len(s.ExternalDomains)),
		slog.Duration("avg_rtt", s.AverageRTT),
		slog.String("report", completion.ReportPath),
	)
	return nil
}

// Multi calls every notifier in order and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, completion Completion) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, completion); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
