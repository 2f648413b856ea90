// Package api provides the HTTP API over the run log and a WebSocket stream
// of run progress.
//
// Routes:
//
//	GET /api/v1/health
//	GET /api/v1/runs
//	GET /api/v1/runs/{id}
//	GET /api/v1/runs/{id}/stats
//	GET /api/v1/runs/{id}/occurrences?user=&activity=&day=&limit=
//	DELETE /api/v1/runs/{id}
//	GET /api/v1/audit?action=&run_id=&limit=&offset=
//	GET /api/v1/ws          (WebSocket: run.started, run.day, run.completed)
//	GET /metrics            (Prometheus)
//
// When a JWT secret is configured, every route except health and metrics
// needs a bearer token whose role grants the route's permission.
//
// The server follows the same lifecycle as the other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
