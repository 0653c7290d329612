package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/config"
	"github.com/rohmanhakim/site-crawler/internal/extractor"
	"github.com/rohmanhakim/site-crawler/internal/fetcher"
	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/internal/notify"
	"github.com/rohmanhakim/site-crawler/internal/portscan"
	"github.com/rohmanhakim/site-crawler/internal/robots"
	"github.com/rohmanhakim/site-crawler/internal/stats"
	"github.com/rohmanhakim/site-crawler/internal/storage"
	"github.com/rohmanhakim/site-crawler/pkg/failure"
	"github.com/rohmanhakim/site-crawler/pkg/limiter"
	"github.com/rohmanhakim/site-crawler/pkg/retry"
	"github.com/rohmanhakim/site-crawler/pkg/timeutil"
	"github.com/rohmanhakim/site-crawler/pkg/urlutil"
	"github.com/rohmanhakim/site-crawler/pkg/workpool"
)

/*
 Scheduler is the sole control-plane authority of the crawl engine.

 It owns both worker pools, the liveness counters, the crawl state and the
 crawl-scoped run (base URL, policy, visited set, statistics).

 Lifecycle guarantees:
 - At most one crawl runs at a time; Start while RUNNING is rejected.
 - Start submits the seed task(s) and flips IDLE → RUNNING inside one
   critical section, so no task can observe a half-started crawl.
 - Every task calls checkIfFinished when it is done. The crawl finishes
   when, under the state lock, both liveness counters read zero.
 - Finalization (statistics page, notification, final stats) runs exactly
   once per crawl.

 Metadata emission is observational only and MUST NOT influence
 scheduling or crawl termination.
*/

// PortScanner probes a host's TCP ports before a crawl starts.
type PortScanner interface {
	Scan(ctx context.Context, host string, start, end int) ([]int, failure.ClassifiedError)
}

// DialFunc opens the TCP connection used to probe reachability.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Scheduler struct {
	cfg            config.Config
	logger         *slog.Logger
	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	client         fetcher.Fetcher
	robotsFetcher  *robots.RobotsFetcher
	extractor      *extractor.LinkExtractor
	limiter        limiter.RateLimiter
	scanner        PortScanner
	storageSink    storage.Sink
	notifier       notify.Notifier
	dial           DialFunc
	retryParam     retry.RetryParam

	ctx         context.Context
	cancel      context.CancelFunc
	fetchPool   *workpool.Pool
	analyzePool *workpool.Pool
	live        liveness

	startMu sync.Mutex

	stateMu    sync.Mutex
	state      State
	closed     bool
	run        *crawlRun
	idle       chan struct{}
	lastResult *Result
}

// Deps are the collaborators of a Scheduler. Nil fields get the production
// implementation built from the config.
type Deps struct {
	Logger         *slog.Logger
	MetadataSink   metadata.MetadataSink
	CrawlFinalizer metadata.CrawlFinalizer
	Fetcher        fetcher.Fetcher
	Scanner        PortScanner
	Storage        storage.Sink
	Notifier       notify.Notifier
	Limiter        limiter.RateLimiter
	Dial           DialFunc
}

func NewScheduler(cfg config.Config, logger *slog.Logger) (*Scheduler, error) {
	return NewSchedulerWithDeps(cfg, Deps{Logger: logger})
}

// NewSchedulerWithDeps creates a Scheduler with injected collaborators.
// Tests use it to replace the network and the filesystem.
func NewSchedulerWithDeps(cfg config.Config, deps Deps) (*Scheduler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := metadata.NewRecorder("scheduler", logger)
	metadataSink := deps.MetadataSink
	if metadataSink == nil {
		metadataSink = recorder
	}
	crawlFinalizer := deps.CrawlFinalizer
	if crawlFinalizer == nil {
		crawlFinalizer = recorder
	}

	client := deps.Fetcher
	if client == nil {
		client = fetcher.NewWireClient(metadataSink, fetcher.ClientParam{
			Timeout:      cfg.Timeout(),
			UserAgent:    cfg.UserAgent(),
			HTTPVersion:  cfg.HTTPVersion(),
			MaxBodyBytes: cfg.MaxBodyBytes(),
		})
	}

	linkExtractor, err := extractor.NewLinkExtractor(metadataSink, extractor.Extensions{
		Images:    cfg.ImageExtensions(),
		Videos:    cfg.VideoExtensions(),
		Documents: cfg.DocumentExtensions(),
	})
	if err != nil {
		return nil, err
	}

	backoffParam := timeutil.NewBackoffParam(
		cfg.BackoffInitialDuration(),
		cfg.BackoffMultiplier(),
		cfg.BackoffMaxDuration(),
	)

	rateLimiter := deps.Limiter
	if rateLimiter == nil {
		rateLimiter = limiter.NewConcurrentRateLimiter(cfg.BaseDelay(), cfg.Jitter(), cfg.RandomSeed(), backoffParam)
	}

	scanner := deps.Scanner
	if scanner == nil {
		scanner = portscan.NewScanner(metadataSink, cfg.PortScanTimeout(), cfg.PortScanConcurrency())
	}

	storageSink := deps.Storage
	if storageSink == nil {
		storageSink = storage.NewLocalSink(metadataSink, cfg.OutputDir())
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	dial := deps.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: cfg.Timeout()}
		dial = d.DialContext
	}

	fetchPool, err := workpool.New("fetch", cfg.MaxFetchers(), logger)
	if err != nil {
		return nil, err
	}
	analyzePool, err := workpool.New("analyze", cfg.MaxAnalyzers(), logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	s := &Scheduler{
		cfg:            cfg,
		logger:         logger,
		metadataSink:   metadataSink,
		crawlFinalizer: crawlFinalizer,
		client:         client,
		robotsFetcher:  robots.NewRobotsFetcher(metadataSink, client),
		extractor:      linkExtractor,
		limiter:        rateLimiter,
		scanner:        scanner,
		storageSink:    storageSink,
		notifier:       notifier,
		dial:           dial,
		retryParam: retry.NewRetryParam(
			cfg.BaseDelay(),
			cfg.Jitter(),
			cfg.RandomSeed(),
			cfg.MaxAttempt(),
			backoffParam,
		),
		ctx:         ctx,
		cancel:      cancel,
		fetchPool:   fetchPool,
		analyzePool: analyzePool,
		state:       StateIdle,
		idle:        idle,
	}

	fetchPool.Start(ctx)
	analyzePool.Start(ctx)
	return s, nil
}

// Start begins a crawl of host. It returns once the seed task is submitted;
// the crawl itself runs on the worker pools.
func (s *Scheduler) Start(ctx context.Context, host string, portScan bool, disrespectRobots bool) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if err := s.start(ctx, host, portScan, disrespectRobots); err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"Scheduler.Start",
			mapCrawlingErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrHost, host),
			},
		)
		return err
	}
	return nil
}

func (s *Scheduler) start(ctx context.Context, host string, portScan bool, disrespectRobots bool) *CrawlingError {
	s.stateMu.Lock()
	closed, state := s.closed, s.state
	s.stateMu.Unlock()

	if closed {
		return &CrawlingError{Cause: ErrCauseShutdown}
	}
	if state == StateRunning {
		return &CrawlingError{Cause: ErrCauseAlreadyRunning}
	}

	base, err := urlutil.Normalize(urlutil.FixHost(host))
	if err != nil {
		return &CrawlingError{
			Message: err.Error(),
			Cause:   ErrCauseMalformedHost,
		}
	}

	if err := s.probe(ctx, base); err != nil {
		return err
	}

	respectRobots := !disrespectRobots
	run := newCrawlRun(base, respectRobots)
	run.stats.Begin(base.Host(), respectRobots, portScan, time.Now())

	if portScan {
		ports, scanErr := s.scanner.Scan(ctx, base.Host(), s.cfg.PortRangeStart(), s.cfg.PortRangeEnd())
		if scanErr != nil {
			return &CrawlingError{
				Message: scanErr.Error(),
				Cause:   ErrCausePortScanFailed,
			}
		}
		run.stats.SetOpenPorts(ports)
	}

	seeds := s.preparePolicy(ctx, run)

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.closed {
		return &CrawlingError{Cause: ErrCauseShutdown}
	}
	s.limiter.Reset()
	s.state = StateRunning
	s.run = run
	s.idle = make(chan struct{})

	s.fetchPool.Submit(s.newFetchTask(run, base, stats.ClassPage, "", 0))
	for _, seed := range seeds {
		s.fetchPool.Submit(s.newFetchTask(run, seed, stats.ClassPage, "", 0))
	}

	s.logger.Info("crawl started",
		slog.String("base", base.String()),
		slog.Bool("respect_robots", respectRobots),
		slog.Bool("port_scan", portScan),
		slog.Int("extra_seeds", len(seeds)),
	)
	return nil
}

// preparePolicy fetches robots.txt. In respect mode the rules become the
// run's policy; otherwise every listed path becomes an extra seed.
func (s *Scheduler) preparePolicy(ctx context.Context, run *crawlRun) []urlutil.URL {
	rules, robotsErr := s.robotsFetcher.Fetch(ctx, run.base)
	if robotsErr != nil {
		run.robot = robots.NewRobot(s.metadataSink, nil)
		return nil
	}

	if run.respectRobots {
		policy, err := robots.Compile(run.host(), rules)
		if err != nil {
			s.logger.Warn("robots.txt ignored", slog.String("host", run.host()), slog.Any("error", err))
			policy = nil
		}
		run.robot = robots.NewRobot(s.metadataSink, policy)
		return nil
	}

	run.robot = robots.NewRobot(s.metadataSink, nil)
	var seeds []urlutil.URL
	for _, p := range robots.SeedPaths(rules) {
		seed, err := urlutil.Absolutize(p, run.base)
		if err != nil {
			continue
		}
		seeds = append(seeds, seed)
	}
	return seeds
}

// probe dials the base URL's host and port with retry and exponential backoff.
func (s *Scheduler) probe(ctx context.Context, base urlutil.URL) *CrawlingError {
	_, err := retry.Retry(ctx, s.retryParam, func() (struct{}, failure.ClassifiedError) {
		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
		defer cancel()

		conn, err := s.dial(dialCtx, "tcp", base.HostPort())
		if err != nil {
			return struct{}{}, &CrawlingError{
				Message:   err.Error(),
				Retryable: true,
				Cause:     ErrCauseUnreachable,
			}
		}
		_ = conn.Close()
		return struct{}{}, nil
	})
	if err != nil {
		return &CrawlingError{
			Message: err.Error(),
			Cause:   ErrCauseUnreachable,
		}
	}
	return nil
}

func (s *Scheduler) fetchDone() {
	s.releaseFetch()
	s.checkIfFinished()
}

func (s *Scheduler) analyzeDone() {
	s.releaseAnalyze()
	s.checkIfFinished()
}

func (s *Scheduler) releaseFetch() {
	if !s.live.doneFetch() {
		s.recordInvariantViolation("fetch counter below zero")
	}
}

func (s *Scheduler) releaseAnalyze() {
	if !s.live.doneAnalyze() {
		s.recordInvariantViolation("analyze counter below zero")
	}
}

func (s *Scheduler) recordInvariantViolation(details string) {
	s.metadataSink.RecordError(
		time.Now(),
		"scheduler",
		"liveness",
		metadata.CauseInvariantViolation,
		details,
		nil,
	)
}

// checkIfFinished finalizes the crawl when it is RUNNING and both liveness
// counters read zero.
func (s *Scheduler) checkIfFinished() {
	if !s.live.idle() {
		return
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.state != StateRunning || !s.live.idle() {
		return
	}

	run := s.run
	result := s.finalize(run)

	s.lastResult = &result
	s.run = nil
	s.state = StateIdle
	close(s.idle)
}

func (s *Scheduler) finalize(run *crawlRun) Result {
	snapshot := run.stats.Snapshot(time.Now())
	result := Result{Snapshot: snapshot}

	var errs []error
	writeResult, writeErr := s.storageSink.Write(snapshot)
	if writeErr != nil {
		errs = append(errs, writeErr)
	} else {
		result.ReportPath = writeResult.Path()
	}

	if err := s.notifier.Notify(s.ctx, notify.Completion{
		Snapshot:   snapshot,
		ReportPath: result.ReportPath,
	}); err != nil {
		errs = append(errs, fmt.Errorf("notify: %w", err))
	}
	result.Err = errors.Join(errs...)

	s.crawlFinalizer.RecordFinalCrawlStats(
		snapshot.Host,
		snapshot.Pages.Count,
		snapshot.Resources(),
		snapshot.FailedFetches,
		snapshot.Duration(),
	)

	run.visited.Reset()
	run.stats.Reset()
	return result
}

func (s *Scheduler) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// CrawlingHistory lists the stored statistics pages, oldest name first.
func (s *Scheduler) CrawlingHistory() ([]string, error) {
	names, err := s.storageSink.History()
	if err != nil {
		return nil, err
	}
	return names, nil
}

// WaitIdle blocks until the current crawl, if any, has finished.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	s.stateMu.Lock()
	idle := s.idle
	s.stateMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastResult returns the result of the most recently finished crawl.
func (s *Scheduler) LastResult() (Result, bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.lastResult == nil {
		return Result{}, false
	}
	return *s.lastResult, true
}

// Shutdown stops both pools. Queued tasks are aborted, in-flight socket I/O
// is cancelled, and a running crawl is finalized with what it collected.
func (s *Scheduler) Shutdown() {
	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		return
	}
	s.closed = true
	s.stateMu.Unlock()

	s.cancel()
	s.fetchPool.Shutdown()
	s.analyzePool.Shutdown()
	s.fetchPool.Wait()
	s.analyzePool.Wait()

	s.checkIfFinished()
}
