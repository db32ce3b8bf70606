// Package pkg provides the core libraries for Stacklock, a Pipfile resolver
// and lock engine.
//
// # Overview
//
// Stacklock turns the loose requirements of a Pipfile into a Pipfile.lock
// that pins every transitive dependency to one version with artifact hashes.
// The pkg directory is organized into four areas:
//
//  1. Python packaging formats: [pep440], [markers], [requirement],
//     [manifest] and [lock]
//  2. Resolution: [provider] answers metadata queries and [resolve] runs
//     the backtracking search
//  3. Presentation: [depgraph] models the locked or installed graph and
//     [render] prints it
//  4. Infrastructure: [cache], [integrations], [httputil], [observability]
//     and [io]
//
// # Architecture
//
// The typical data flow through Stacklock:
//
//	Pipfile
//	   ↓
//	[manifest] package (parse, fingerprint)
//	   ↓
//	[resolve] package (backtracking over a [provider])
//	   ↓
//	[lock] package (Pipfile.lock encode/decode)
//	   ↓
//	[verify], [depgraph] + [render], requirements export
//
// [pipeline] wires these steps together for the CLI and the [api] server.
//
// # Quick Start
//
// Lock a project against PyPI:
//
//	import (
//	    "context"
//	    "time"
//
//	    "github.com/charmbracelet/log"
//	    "github.com/matzehuels/stacklock/pkg/cache"
//	    "github.com/matzehuels/stacklock/pkg/integrations/pypi"
//	    "github.com/matzehuels/stacklock/pkg/pipeline"
//	)
//
//	backend, _ := cache.NewFileCache("")
//	runner := pipeline.NewRunner(pypi.NewClient(backend, 24*time.Hour), backend, log.Default())
//	res, err := runner.Lock(context.Background(), pipeline.LockOptions{
//	    ProjectDir: ".",
//	    Write:      true,
//	})
//
// [pep440]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/pep440
// [markers]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/markers
// [requirement]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/requirement
// [manifest]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/manifest
// [lock]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/lock
// [provider]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/provider
// [resolve]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/resolve
// [verify]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/verify
// [depgraph]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/depgraph
// [render]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/cache
// [integrations]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/integrations
// [httputil]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/observability
// [io]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/pipeline
// [api]: https://pkg.go.dev/github.com/matzehuels/stacklock/pkg/api
package pkg
