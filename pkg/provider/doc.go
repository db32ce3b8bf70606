// Package provider defines the metadata source consulted during resolution.
//
// A [Provider] answers three questions about a package: which versions exist,
// what a version requires, and which artifact hashes it publishes. The
// resolver only talks to this interface, so the same code runs against the
// live index (see integrations/pypi), an offline index file ([LoadIndex]) or
// an in-memory fixture ([Static]).
//
// [Cache] wraps any provider with per-run memoization, collapsed concurrent
// fetches and retry of transient failures.
package provider
