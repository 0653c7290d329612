package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/config"
	"github.com/rohmanhakim/site-crawler/internal/scheduler"
	"github.com/spf13/cobra"
)

func newCrawlCmd() *cobra.Command {
	var (
		portScan         bool
		disrespectRobots bool
	)

	cmd := &cobra.Command{
		Use:   "crawl <host>",
		Short: "Crawl one host and write its statistics page",
		Long: `Crawl fetches the host's root page and every internal page reachable from
it. Images, videos and documents are requested with HEAD only. External
links are fetched once and counted, never followed.

Examples:
  site-crawler crawl example.com
  site-crawler crawl https://example.com --port-scan
  site-crawler crawl example.com --disrespect-robots`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := InitConfigWithError()
			if err != nil {
				return err
			}
			logger := setupLogger(verbose, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runCrawl(ctx, cmd.OutOrStdout(), cfg, logger, args[0], portScan, disrespectRobots)
		},
	}

	cmd.Flags().BoolVar(&portScan, "port-scan", false, "scan the host's TCP ports before crawling")
	cmd.Flags().BoolVar(&disrespectRobots, "disrespect-robots", false, "ignore robots.txt and crawl the paths it lists")
	return cmd
}

func runCrawl(
	ctx context.Context,
	out io.Writer,
	cfg config.Config,
	logger *slog.Logger,
	host string,
	portScan bool,
	disrespectRobots bool,
) error {
	s, err := scheduler.NewScheduler(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Shutdown()

	if err := s.Start(ctx, host, portScan, disrespectRobots); err != nil {
		return err
	}

	if err := s.WaitIdle(ctx); err != nil {
		fmt.Fprintln(out, "Interrupted, writing partial statistics...")
		s.Shutdown()
	}

	result, ok := s.LastResult()
	if !ok {
		return fmt.Errorf("crawl of %s did not finish", host)
	}
	printResult(out, result)
	return result.Err
}

func printResult(out io.Writer, result scheduler.Result) {
	snap := result.Snapshot
	fmt.Fprintf(out, "Crawl of %s finished in %s\n", snap.Host, snap.Duration().Round(time.Millisecond))
	if snap.Title != "" {
		fmt.Fprintf(out, "  title:     %s\n", snap.Title)
	}
	fmt.Fprintf(out, "  pages:     %d (%d bytes)\n", snap.Pages.Count, snap.Pages.Bytes)
	fmt.Fprintf(out, "  images:    %d (%d bytes)\n", snap.Images.Count, snap.Images.Bytes)
	fmt.Fprintf(out, "  videos:    %d (%d bytes)\n", snap.Videos.Count, snap.Videos.Bytes)
	fmt.Fprintf(out, "  documents: %d (%d bytes)\n", snap.Documents.Count, snap.Documents.Bytes)
	fmt.Fprintf(out, "  links:     %d internal, %d external\n", snap.InternalLinks, snap.ExternalLinks)
	fmt.Fprintf(out, "  avg rtt:   %s\n", snap.AverageRTT)
	if snap.PortScan {
		fmt.Fprintf(out, "  open ports: %v\n", snap.OpenPorts)
	}
	if result.ReportPath != "" {
		fmt.Fprintf(out, "Statistics page: %s\n", result.ReportPath)
	}
}
