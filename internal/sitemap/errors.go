package sitemap

import (
	"errors"
	"fmt"
)

// ErrNoSitemap is returned when neither robots.txt nor the conventional
// locations yield a sitemap for the site.
var ErrNoSitemap = errors.New("no sitemap found for website")

// ErrTooDeep is returned when sitemap index nesting exceeds the depth limit.
var ErrTooDeep = errors.New("sitemap index nesting exceeds depth limit")

// StatusError reports a non-200 response for a sitemap fetch.
type StatusError struct {
	// URL is the sitemap URL that was fetched.
	URL string

	// StatusCode is the HTTP status returned.
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("sitemap fetch %s: unexpected status %d", e.URL, e.StatusCode)
}
