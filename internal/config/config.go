package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen based on typical website characteristics and the
// behavior of the audits this tool replaces where applicable.
const (
	// DefaultTimeout is set to 30 seconds per request. Audits visit many
	// pages and probe many links, so a generous timeout risks multi-hour
	// stalls on a handful of slow hosts. A value of 0 disables the timeout
	// entirely and lets each request block until the remote side answers.
	DefaultTimeout = 30 * time.Second

	// DefaultProbeConcurrency of 1 keeps liveness probing strictly
	// sequential. Bounded concurrency can be enabled via --concurrency;
	// probe output order is deterministic either way.
	DefaultProbeConcurrency = 1

	// DefaultCheckConcurrency is the worker count for the quick single-page
	// check, which HEAD-validates links in parallel.
	DefaultCheckConcurrency = 8

	// DefaultSiteConcurrency is the number of sites audited concurrently
	// when running against every site in the configuration file.
	DefaultSiteConcurrency = 2

	// DefaultUserAgent disguises the auditor as a desktop Chrome browser so
	// audited sites serve the same markup they serve real visitors. Several
	// CDNs and bot-protection layers answer 403 to unknown agents, which
	// would skew broken-link results.
	DefaultUserAgent = "Mozilla/5.0 (X11; CrOS x86_64 8172.45.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/51.0.2704.64 Safari/537.36"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultSitemapDepth bounds sitemap-index recursion. Real sitemap trees
	// rarely nest more than two levels; five tolerates unusual setups while
	// still stopping self-referencing indexes.
	DefaultSitemapDepth = 5

	// AppName is the application name used for XDG directory paths.
	AppName = "linkaudit"
)

// Config holds all configuration options for linkaudit.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ProbeConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Domain is the bare domain name being audited (no scheme), e.g.
	// "example.com". Link classification substring-matches this value
	// against every harvested href.
	Domain string

	// WebsiteURL is the full website URL with scheme, e.g.
	// "https://example.com". Sitemap discovery starts here.
	WebsiteURL string

	// Timeout is the per-request timeout for sitemap fetches, page fetches,
	// and liveness probes. Zero disables the timeout.
	Timeout time.Duration

	// ProbeConcurrency is the number of concurrent liveness probes.
	// 1 means strictly sequential probing.
	ProbeConcurrency int

	// CheckConcurrency is the worker count for the quick single-page check.
	CheckConcurrency int

	// SiteConcurrency is the number of sites audited concurrently when
	// auditing every configured site.
	SiteConcurrency int

	// SkipPageErrors makes the harvester log and skip pages that fail to
	// fetch. When false (the default), the first page fetch failure aborts
	// the whole audit.
	SkipPageErrors bool

	// AllOccurrences makes the matcher report every page referencing a
	// broken href. When false (the default), only the first occurrence per
	// href is reported.
	AllOccurrences bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// UserAgent is the User-Agent header sent with every HTTP request.
	UserAgent string

	// Referer is an optional Referer header sent with every HTTP request.
	Referer string

	// Headers are extra HTTP headers merged in from the site configuration,
	// e.g. cookies or authorization for members-only areas.
	Headers map[string]string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated. 0 means use the default.
	MaxBodySize int64

	// SitemapDepth is the maximum sitemap-index recursion depth.
	SitemapDepth int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .linkaudit.yaml in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config
	// file. Populated by LoadConfigFile and consulted per audited domain.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of the console table.
	// Mutually exclusive with MarkdownReport and CSVReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the console
	// table. Mutually exclusive with JSONReport and CSVReport.
	MarkdownReport bool

	// CSVReport enables CSV report output instead of the console table.
	// Mutually exclusive with JSONReport and MarkdownReport.
	CSVReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, audit results are saved for historical comparison.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to save audit results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// ProbeCacheAge reuses stored probe results newer than this age instead
	// of re-fetching the href. Zero disables the cache and every unique
	// href is probed fresh.
	ProbeCacheAge time.Duration
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, user agent).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:          DefaultTimeout,
		ProbeConcurrency: DefaultProbeConcurrency,
		CheckConcurrency: DefaultCheckConcurrency,
		SiteConcurrency:  DefaultSiteConcurrency,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		SitemapDepth:     DefaultSitemapDepth,
	}
}

// XDGDataDir returns the XDG data directory for linkaudit.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/linkaudit
// On macOS: ~/Library/Application Support/linkaudit
// On Windows: %LOCALAPPDATA%\linkaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkaudit.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/linkaudit
// On macOS: ~/Library/Application Support/linkaudit
// On Windows: %APPDATA%\linkaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for linkaudit.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/linkaudit
// On macOS: ~/Library/Caches/linkaudit
// On Windows: %LOCALAPPDATA%\linkaudit\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any auditing begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// Both the domain name and the website URL are required
	if c.Domain == "" {
		return ErrNoDomain
	}
	if c.WebsiteURL == "" {
		return ErrNoWebsiteURL
	}

	// The website URL must carry an http or https scheme; sitemap discovery
	// and classification both depend on it
	u, err := url.Parse(c.WebsiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidWebsiteURL
	}

	// Timeout of zero means "no timeout"; only negative values are invalid
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	// Probe concurrency must allow at least one worker
	if c.ProbeConcurrency < 1 {
		return ErrInvalidConcurrency
	}

	// Site concurrency must allow at least one audit at a time
	if c.SiteConcurrency < 1 {
		return ErrInvalidSiteConcurrency
	}

	// Only one report format can be selected
	formats := 0
	for _, enabled := range []bool{c.JSONReport, c.MarkdownReport, c.CSVReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	// MaxBodySize must be non-negative; 0 means use the default
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	// ProbeCacheAge must be non-negative; 0 disables the cache
	if c.ProbeCacheAge < 0 {
		return ErrInvalidProbeCacheAge
	}

	return nil
}
