// Package httpmw holds the middleware of the public site listener.
//
// httpserver composes them outermost first: security headers, panic
// recovery, request id, client ip, rate limiting, tracing, trace response
// headers, metrics, request logger, compression, route annotation, access
// log and body limit. Query strings and user agents are kept out of logs.
package httpmw
