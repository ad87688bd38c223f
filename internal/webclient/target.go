package webclient

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL normalizes a user-supplied target URL.
//
// This function handles common input variations:
//   - Extra whitespace
//   - Missing scheme (https:// is assumed)
//   - Uppercase scheme or host
//
// The result always carries an http or https scheme and a host; anything
// else is rejected.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidTargetURL
	}

	// Assume https for bare host input like "example.com/page".
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse target URL: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", ErrInvalidTargetURL
	}
	u.Host = strings.ToLower(u.Host)

	return u.String(), nil
}

// DeriveDomain extracts the bare domain name from a target URL: the host
// without port, lowercased, with any leading "www." trimmed.
//
// The www. trim matters for substring classification: pages on
// www.example.com routinely link to example.com and both must count as
// the same site.
func DeriveDomain(rawURL string) (string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("parse target URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return "", ErrInvalidTargetURL
	}

	return strings.TrimPrefix(host, "www."), nil
}
