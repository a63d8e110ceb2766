// Package api implements the controller's ops HTTP server.
//
// Endpoints:
//   - GET /healthz: dependency health (200 ok, 503 degraded)
//   - GET /metrics: Prometheus exposition
//   - GET /api/v1/status: version, uptime, runtime and rule counts
//   - GET /api/v1/channels: last known relay channel states
//   - GET /api/v1/actuations: recent relay commands from the audit log
//
// The server is read-only; it never changes controller state.
package api
