// Package probe checks links for HTTP-level breakage.
//
// The Prober issues one request per unique href and records any non-200
// response as broken, using status 0 as the sentinel for requests that
// failed entirely (timeout, DNS failure, connection refused). Probes run
// sequentially by default and can be bounded-concurrent; results always
// come back in input order.
//
// A pluggable cache lets repeated audits skip hrefs probed recently.
package probe
