// Package pagecache is the in-process cache of rendered pages.
//
// Entries are served fresh until their ttl lapses, then served stale while
// a single background refresh runs. Misses are filled synchronously and
// concurrent fills of one key collapse into a single call. Not-found pages
// are cached like any other page; fill errors are never cached, so the
// last good copy keeps serving while WordPress is failing.
package pagecache
