// Package ratelimit provides per-client rate limiting for the public site
// listener with background eviction of idle clients.
//
// It is a single-instance, in-memory limiter meant to stop one client from
// driving page renders (and with them WordPress queries) faster than the
// cache can absorb. Distributed abuse belongs to the CDN in front.
package ratelimit
