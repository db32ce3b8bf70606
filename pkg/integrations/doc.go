// Package integrations provides HTTP clients for package index APIs.
//
// # Overview
//
// Index-specific clients live in subpackages; [pypi] talks to the Python
// Package Index JSON API and any index that mirrors it.
//
// # Shared Infrastructure
//
// The [Client] type provides functionality shared by every index client:
//
//   - JSON and text GET requests with default headers
//   - Response caching through any [cache.Cache] backend
//   - Retry of transient failures (network errors, 429 and 5xx responses)
//   - HTTP and cache events reported through observability hooks
//
// [pypi]: github.com/matzehuels/stacklock/pkg/integrations/pypi
// [cache.Cache]: github.com/matzehuels/stacklock/pkg/cache.Cache
package integrations
