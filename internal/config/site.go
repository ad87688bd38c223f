package config

import "sort"

// SiteConfig holds site-specific configuration for a single audited domain.
// This allows customizing request behavior per site, e.g. sending a session
// cookie so members-only pages can be audited.
type SiteConfig struct {
	// URL is the full website URL with scheme for this domain.
	// Required for sites audited via the --all flag.
	URL string `yaml:"url,omitempty"`

	// UserAgent overrides the global User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Referer is an HTTP Referer header to send with requests to this site.
	// Some sites answer differently (or at all) only to referred traffic.
	Referer string `yaml:"referer,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site,
	// e.g. Cookie or Authorization for authenticated audits.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .linkaudit.yaml configuration file.
type File struct {
	// Sites maps bare domain names to their site-specific configurations.
	// Keys are domains without a scheme (e.g. "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific domain.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(domain string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := cf.Sites[domain]; ok {
		if siteConfig.URL != "" {
			result.URL = siteConfig.URL
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
		if siteConfig.Referer != "" {
			result.Referer = siteConfig.Referer
		}
		if len(siteConfig.Headers) > 0 {
			// Merge into a fresh map so the shared defaults stay untouched.
			merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range siteConfig.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
	}

	return result
}

// Domains returns the sorted list of domains declared in the file that carry
// a website URL and can therefore be audited without further arguments.
func (cf *File) Domains() []string {
	domains := make([]string, 0, len(cf.Sites))
	for domain, site := range cf.Sites {
		if site.URL != "" {
			domains = append(domains, domain)
		}
	}
	sort.Strings(domains)
	return domains
}
