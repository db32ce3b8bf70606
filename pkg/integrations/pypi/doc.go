// Package pypi provides a metadata provider backed by the Python Package
// Index JSON API.
//
// # Usage
//
//	client := pypi.NewClient(backend, 24*time.Hour)
//	versions, err := client.Versions(ctx, "requests")
//	reqs, err := client.Requirements(ctx, "requests", versions[len(versions)-1])
//
// Two endpoints are used: /pypi/<name>/json for the release list and
// /pypi/<name>/<version>/json for a release's Requires-Dist and file
// digests. Any index serving the same API can be targeted with
// [WithIndexURL].
//
// # Caching
//
// Responses are stored in the configured cache backend for the client's TTL,
// so repeated locks of the same project do not hit the network.
package pypi
