// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Project creation and management
//   - Research and plan run launches
//   - Run status queries
//   - Health checks
//   - Prometheus metrics
package http
