package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/build"
	"github.com/rohmanhakim/site-crawler/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	maxFetchers  int
	maxAnalyzers int
	timeout      time.Duration
	userAgent    string
	outputDir    string
	verbose      bool
)

// NewRootCmd builds the command tree. Flags bind to package-level values,
// so every call resets them to their defaults.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "site-crawler",
		Short: "A concurrent single-site web crawler.",
		Long: `site-crawler walks every page reachable from a host's root, counts the
images, videos and documents it references, follows internal links and
records the external domains it connects to.

Each finished crawl leaves one statistics page in the output directory.
The crawler speaks HTTP/1.x over plain sockets, honors robots.txt unless
told otherwise, and can port-scan the host before it starts.`,
		Version:       build.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path, JSON or YAML (e.g., /home/myuser/config.yaml)")
	rootCmd.PersistentFlags().IntVar(&maxFetchers, "max-fetchers", 0, "number of fetch workers (0 for the default)")
	rootCmd.PersistentFlags().IntVar(&maxAnalyzers, "max-analyzers", 0, "number of analyze workers (0 for the default)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "socket timeout per request")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "directory holding the statistics pages")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every fetch and skip")

	rootCmd.AddCommand(
		newCrawlCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// InitConfigWithError builds the configuration from the config file when
// one is given, or from the defaults overridden by command line flags.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	configBuilder := config.WithDefault()

	if maxFetchers > 0 {
		configBuilder = configBuilder.WithMaxFetchers(maxFetchers)
	}

	if maxAnalyzers > 0 {
		configBuilder = configBuilder.WithMaxAnalyzers(maxAnalyzers)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if outputDir != "" {
		configBuilder = configBuilder.WithOutputDir(outputDir)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// setupLogger logs at Warn, or at Debug with --verbose.
func setupLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(w, opts)
	return slog.New(handler)
}

func ResetFlags() {
	cfgFile = ""
	maxFetchers = 0
	maxAnalyzers = 0
	timeout = 0
	userAgent = ""
	outputDir = ""
	verbose = false
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetMaxFetchersForTest(n int) {
	maxFetchers = n
}

func SetMaxAnalyzersForTest(n int) {
	maxAnalyzers = n
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetOutputDirForTest(dir string) {
	outputDir = dir
}
