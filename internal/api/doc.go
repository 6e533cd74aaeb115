// Package api hosts the HTTP server, middleware, and handlers for the progress
// service. Routes:
//   - GET /getProgress returns the document, creating it on first use.
//   - POST /updateProgress increments one counter.
//   - POST /resetProgress zeroes all counters.
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /watchProgress upgrades to a websocket streaming change events,
//     registered only when a ChangeFeed is configured.
//
// Failures always carry a JSON body of the form {"error": "..."}.
package api
