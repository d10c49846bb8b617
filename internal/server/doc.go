// Package server provides the HTTP side of deezr: a passthrough proxy to the catalog API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] implements it on [http.ServeMux] with method-qualified patterns.
// [Middleware] is applied in registration order, the first added being outermost.
//
// Custom handlers implement [Handler], which adds Routes to the stdlib handler interface so a handler
// carries its own route definitions.
//
// # Proxy
//
// [DeezerProxy] serves GET /api/deezer?endpoint=/path. It forwards to the catalog API with a browser
// User-Agent and a 10 second timeout and relays the JSON body unchanged.
//
// Failures are JSON:
//   - 400 {"error": "Endpoint is required"} : no endpoint parameter
//   - 500 {"error": "Failed to fetch from Deezer API", "details": ...} : upstream unreachable, non-2xx or not JSON
//
// # Middleware
//
//   - [RequestID] : propagates or assigns an X-Request-ID (uuid)
//   - [Logging] : one structured log line per request
//   - [Recover] : converts handler panics into a 500
package server
