// Package webclient builds the HTTP client shared by every network stage
// of an audit and normalizes user-supplied target URLs.
//
// One client serves the sitemap enumerator, the anchor harvester, and the
// liveness prober, so connection pooling, cookies, and the redirect policy
// stay consistent across the whole run. Redirects are followed up to a cap
// and then the last response is surfaced as-is, which lets the prober
// record a redirect loop as a non-200 status instead of a transport error.
package webclient
