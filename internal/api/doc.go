// Package api hosts the operator HTTP server of the auditor service:
//   - GET /healthz for liveness probes.
//   - GET /readyz, which also reports the last finished batch.
//   - GET /metrics for Prometheus scraping.
package api
