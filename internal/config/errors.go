package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoDomain is returned when the domain name argument is missing.
	// Both the bare domain name and the full website URL are required.
	ErrNoDomain = errors.New("no domain name specified: provide both the domain name and the full website URL")

	// ErrNoWebsiteURL is returned when the website URL argument is missing.
	// Both the bare domain name and the full website URL are required.
	ErrNoWebsiteURL = errors.New("no website URL specified: provide both the domain name and the full website URL")

	// ErrInvalidWebsiteURL is returned when the website URL does not parse
	// or lacks an http/https scheme, e.g. "example.com" instead of
	// "https://example.com".
	ErrInvalidWebsiteURL = errors.New("invalid website URL: must be a full URL with an http or https scheme")

	// ErrInvalidTimeout is returned when the timeout is negative.
	// A timeout of zero is valid and disables the per-request timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative (0 disables the timeout)")

	// ErrInvalidConcurrency is returned when the probe concurrency is below one.
	// At least one worker is needed to make progress.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrInvalidSiteConcurrency is returned when the site concurrency is below one.
	ErrInvalidSiteConcurrency = errors.New("invalid site concurrency: must be at least 1")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown, and --csv is specified. Only one output format can be
	// used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json, --markdown, and --csv cannot be combined")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProbeCacheAge is returned when the probe cache age is negative.
	// A negative age is invalid; use 0 to disable the probe cache.
	ErrInvalidProbeCacheAge = errors.New("invalid probe cache age: must be non-negative (0 disables the cache)")
)
