// Package resolve computes a pinned, transitively closed set of packages from
// a list of root requirements.
//
// The search is a depth-first backtracking walk. Each round selects the
// unpinned package with the fewest remaining candidates (ties broken by
// name), tries its candidates newest first and records the decision in a
// frame holding an immutable snapshot of the state before it. A candidate
// whose requirements contradict the accumulated demands is rejected and the
// next one is tried on a fresh copy of the snapshot; exhausted frames are
// popped.
//
// Once every demand is pinned, [Resolve] computes the marker under which each
// package is needed (the disjunction over all paths from a root) and fetches
// artifact hashes for every pin concurrently.
//
//	closure, err := resolve.Resolve(ctx, roots, provider, resolve.Options{
//		Environments: []markers.Environment{markers.DefaultEnvironment("3.11")},
//	})
//
// Results are deterministic: identical roots, options and provider responses
// yield identical closures.
package resolve
