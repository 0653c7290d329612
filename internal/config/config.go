package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohmanhakim/site-crawler/internal/build"
	"gopkg.in/yaml.v3"
)

const (
	HTTPVersion10 = "HTTP/1.0"
	HTTPVersion11 = "HTTP/1.1"
)

type Config struct {
	//===============
	// Workers
	//===============
	// Number of fetch workers performing socket I/O concurrently.
	maxFetchers int
	// Number of analyze workers extracting links from fetched pages.
	maxAnalyzers int

	//===============
	// Classification
	//===============
	// File extensions (without dot, case-insensitive) classifying a link as image, video or document.
	imageExtensions    []string
	videoExtensions    []string
	documentExtensions []string

	//===============
	// Fetch
	//===============
	// Connect and read timeout of a single request.
	timeout time.Duration
	// User agent sent with every request. Empty omits the header.
	userAgent string
	// Protocol version written in the request line.
	httpVersion string
	// Upper bound on a single response body.
	maxBodyBytes int64
	// Maximum number of consecutive 301 hops followed from one discovered link.
	maxRedirects int

	//===============
	// Politeness
	//===============
	// Minimum waiting time between two requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt of the reachability probe
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Port scan
	//===============
	portRangeStart      int
	portRangeEnd        int
	portScanConcurrency int
	portScanTimeout     time.Duration

	//===============
	// Output
	//===============
	// Directory holding the statistics pages; also the crawling history.
	outputDir string
}

type configDTO struct {
	MaxFetchers            int           `json:"maxFetchers,omitempty" yaml:"maxFetchers,omitempty"`
	MaxAnalyzers           int           `json:"maxAnalyzers,omitempty" yaml:"maxAnalyzers,omitempty"`
	ImageExtensions        []string      `json:"imageExtensions,omitempty" yaml:"imageExtensions,omitempty"`
	VideoExtensions        []string      `json:"videoExtensions,omitempty" yaml:"videoExtensions,omitempty"`
	DocumentExtensions     []string      `json:"documentExtensions,omitempty" yaml:"documentExtensions,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	HTTPVersion            string        `json:"httpVersion,omitempty" yaml:"httpVersion,omitempty"`
	MaxBodyBytes           int64         `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
	MaxRedirects           int           `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty" yaml:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty" yaml:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration,omitempty"`
	PortRangeStart         int           `json:"portRangeStart,omitempty" yaml:"portRangeStart,omitempty"`
	PortRangeEnd           int           `json:"portRangeEnd,omitempty" yaml:"portRangeEnd,omitempty"`
	PortScanConcurrency    int           `json:"portScanConcurrency,omitempty" yaml:"portScanConcurrency,omitempty"`
	PortScanTimeout        time.Duration `json:"portScanTimeout,omitempty" yaml:"portScanTimeout,omitempty"`
	OutputDir              string        `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()

	// Only override if a non-zero value is provided
	if dto.MaxFetchers != 0 {
		cfg.maxFetchers = dto.MaxFetchers
	}
	if dto.MaxAnalyzers != 0 {
		cfg.maxAnalyzers = dto.MaxAnalyzers
	}
	if len(dto.ImageExtensions) > 0 {
		cfg.imageExtensions = dto.ImageExtensions
	}
	if len(dto.VideoExtensions) > 0 {
		cfg.videoExtensions = dto.VideoExtensions
	}
	if len(dto.DocumentExtensions) > 0 {
		cfg.documentExtensions = dto.DocumentExtensions
	}
	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.HTTPVersion != "" {
		cfg.httpVersion = dto.HTTPVersion
	}
	if dto.MaxBodyBytes != 0 {
		cfg.maxBodyBytes = dto.MaxBodyBytes
	}
	if dto.MaxRedirects != 0 {
		cfg.maxRedirects = dto.MaxRedirects
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.PortRangeStart != 0 {
		cfg.portRangeStart = dto.PortRangeStart
	}
	if dto.PortRangeEnd != 0 {
		cfg.portRangeEnd = dto.PortRangeEnd
	}
	if dto.PortScanConcurrency != 0 {
		cfg.portScanConcurrency = dto.PortScanConcurrency
	}
	if dto.PortScanTimeout != 0 {
		cfg.portScanTimeout = dto.PortScanTimeout
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}

	return cfg.Build()
}

// WithConfigFile loads a JSON or YAML config file, chosen by extension
// (.yaml/.yml for YAML, anything else JSON). Missing keys keep their defaults.
// JSON durations are nanoseconds; YAML durations are strings such as "500ms".
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	cfgDTO := configDTO{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(configContent, &cfgDTO)
	default:
		err = json.Unmarshal(configContent, &cfgDTO)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config holding the default value of every field.
func WithDefault() *Config {
	defaultConfig := Config{
		maxFetchers:            10,
		maxAnalyzers:           2,
		imageExtensions:        []string{"bmp", "jpg", "png", "gif", "ico"},
		videoExtensions:        []string{"avi", "mpg", "mp4", "wmv", "mov", "flv", "swf", "mkv"},
		documentExtensions:     []string{"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx"},
		timeout:                10 * time.Second,
		userAgent:              build.UserAgent(),
		httpVersion:            HTTPVersion10,
		maxBodyBytes:           10 << 20,
		maxRedirects:           10,
		baseDelay:              0,
		jitter:                 0,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             3,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     2 * time.Second,
		portRangeStart:         1,
		portRangeEnd:           1024,
		portScanConcurrency:    10,
		portScanTimeout:        500 * time.Millisecond,
		outputDir:              "statistics",
	}
	return &defaultConfig
}

func (c *Config) WithMaxFetchers(n int) *Config {
	c.maxFetchers = n
	return c
}

func (c *Config) WithMaxAnalyzers(n int) *Config {
	c.maxAnalyzers = n
	return c
}

func (c *Config) WithImageExtensions(exts []string) *Config {
	c.imageExtensions = exts
	return c
}

func (c *Config) WithVideoExtensions(exts []string) *Config {
	c.videoExtensions = exts
	return c
}

func (c *Config) WithDocumentExtensions(exts []string) *Config {
	c.documentExtensions = exts
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithHTTPVersion(version string) *Config {
	c.httpVersion = version
	return c
}

func (c *Config) WithMaxBodyBytes(n int64) *Config {
	c.maxBodyBytes = n
	return c
}

func (c *Config) WithMaxRedirects(n int) *Config {
	c.maxRedirects = n
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithPortRange(start, end int) *Config {
	c.portRangeStart = start
	c.portRangeEnd = end
	return c
}

func (c *Config) WithPortScanConcurrency(n int) *Config {
	c.portScanConcurrency = n
	return c
}

func (c *Config) WithPortScanTimeout(timeout time.Duration) *Config {
	c.portScanTimeout = timeout
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) Build() (Config, error) {
	if c.maxFetchers < 1 {
		return Config{}, fmt.Errorf("%w: maxFetchers must be positive, got %d", ErrInvalidConfig, c.maxFetchers)
	}
	if c.maxAnalyzers < 1 {
		return Config{}, fmt.Errorf("%w: maxAnalyzers must be positive, got %d", ErrInvalidConfig, c.maxAnalyzers)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.httpVersion != HTTPVersion10 && c.httpVersion != HTTPVersion11 {
		return Config{}, fmt.Errorf("%w: unsupported httpVersion %q", ErrInvalidConfig, c.httpVersion)
	}
	if c.maxBodyBytes < 1 {
		return Config{}, fmt.Errorf("%w: maxBodyBytes must be positive", ErrInvalidConfig)
	}
	if c.maxRedirects < 0 {
		return Config{}, fmt.Errorf("%w: maxRedirects cannot be negative", ErrInvalidConfig)
	}
	if c.portRangeStart < 1 || c.portRangeEnd > 65535 || c.portRangeStart > c.portRangeEnd {
		return Config{}, fmt.Errorf("%w: invalid port range %d-%d", ErrInvalidConfig, c.portRangeStart, c.portRangeEnd)
	}
	if c.portScanConcurrency < 1 {
		return Config{}, fmt.Errorf("%w: portScanConcurrency must be positive", ErrInvalidConfig)
	}
	if c.outputDir == "" {
		return Config{}, fmt.Errorf("%w: outputDir cannot be empty", ErrInvalidConfig)
	}

	c.imageExtensions = normalizeExtensions(c.imageExtensions)
	c.videoExtensions = normalizeExtensions(c.videoExtensions)
	c.documentExtensions = normalizeExtensions(c.documentExtensions)

	return *c, nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (c Config) MaxFetchers() int {
	return c.maxFetchers
}

func (c Config) MaxAnalyzers() int {
	return c.maxAnalyzers
}

func (c Config) ImageExtensions() []string {
	return append([]string(nil), c.imageExtensions...)
}

func (c Config) VideoExtensions() []string {
	return append([]string(nil), c.videoExtensions...)
}

func (c Config) DocumentExtensions() []string {
	return append([]string(nil), c.documentExtensions...)
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) HTTPVersion() string {
	return c.httpVersion
}

func (c Config) MaxBodyBytes() int64 {
	return c.maxBodyBytes
}

func (c Config) MaxRedirects() int {
	return c.maxRedirects
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) PortRangeStart() int {
	return c.portRangeStart
}

func (c Config) PortRangeEnd() int {
	return c.portRangeEnd
}

func (c Config) PortScanConcurrency() int {
	return c.portScanConcurrency
}

func (c Config) PortScanTimeout() time.Duration {
	return c.portScanTimeout
}

func (c Config) OutputDir() string {
	return c.outputDir
}
