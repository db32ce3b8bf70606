// Package api serves the stacklock engine over HTTP.
//
// The API is stateless: every request carries the Pipfile and Pipfile.lock
// content it operates on, and nothing is written on the server.
//
// # Routes
//
//	GET  /healthz     liveness and build version
//	GET  /metrics     Prometheus metrics
//	POST /v1/lock     resolve a Pipfile, returns Pipfile.lock content
//	POST /v1/verify   check a lock against its Pipfile
//	POST /v1/graph    render the dependency graph of a lock
//
// Errors are JSON objects of the form
//
//	{"error": {"code": "RESOLUTION_IMPOSSIBLE", "message": "..."}}
//
// with the status derived from the error code (see [StatusFor]).
package api
