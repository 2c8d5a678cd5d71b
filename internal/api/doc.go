// Package api hosts the HTTP server, middleware, and REST handlers. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/scrape returns page signals for a landing page.
//   - POST /v1/generate runs a usage-gated completion, either from raw messages or from a
//     landing page URL plus keywords.
//   - POST /v1/refine rewrites a single headline or description.
//
// Every route answers CORS preflight requests.
package api
