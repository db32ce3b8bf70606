// Package pipeline orchestrates the stacklock operations shared by the CLI
// and the HTTP API.
//
// A [Runner] ties the building blocks together: it finds and loads the
// Pipfile, reads the previous Pipfile.lock, resolves both sections through a
// metadata provider, writes the new artifact, and builds and renders
// dependency graphs. By centralizing this logic, every entry point locks and
// renders the same way.
//
// # Operations
//
//   - [Runner.Lock]: resolve the manifest and (optionally) write Pipfile.lock
//   - [Runner.Graph]: render the locked or installed dependency graph
//   - [Runner.Verify]: check Pipfile.lock freshness without resolving
//   - [Runner.Add]: record requirements in the Pipfile
//   - [Runner.Requirements]: export a section as requirements.txt lines
//   - [Runner.Clean]: list installed packages absent from the lock
//
// # Usage
//
//	runner := pipeline.NewRunner(pypiProvider, fileCache, logger)
//	res, err := runner.Lock(ctx, pipeline.LockOptions{
//	    ProjectDir: ".",
//	    Write:      true,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Path, len(res.Lockfile.Default.Entries))
package pipeline

import (
	"errors"
	"time"

	"github.com/matzehuels/stacklock/pkg/depgraph"
	"github.com/matzehuels/stacklock/pkg/environment"
	"github.com/matzehuels/stacklock/pkg/lock"
	"github.com/matzehuels/stacklock/pkg/markers"
	"github.com/matzehuels/stacklock/pkg/render"
	"github.com/matzehuels/stacklock/pkg/resolve"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultSearchDepth is how many parent directories are searched for a
	// Pipfile above the project directory.
	DefaultSearchDepth = 3

	// TTLArtifact is how long rendered SVG diagrams stay cached.
	TTLArtifact = 7 * 24 * time.Hour
)

// ErrNoLock is returned when an operation needs a Pipfile.lock and none
// exists next to the manifest.
var ErrNoLock = errors.New("no Pipfile.lock present")

// Graph sources reported in [GraphResult].
const (
	SourceLock      = "lock"
	SourceInstalled = "installed"
)

// targetPlatforms are the platforms a lock is computed for when the manifest
// pins an interpreter version.
var targetPlatforms = [][2]string{
	{"linux", "amd64"},
	{"darwin", "arm64"},
	{"windows", "amd64"},
}

// TargetEnvironments returns the marker environments a lock targets for the
// given interpreter version. An empty version targets every environment,
// reported as nil.
func TargetEnvironments(pythonVersion string) []markers.Environment {
	if pythonVersion == "" {
		return nil
	}
	envs := make([]markers.Environment, 0, len(targetPlatforms))
	for _, p := range targetPlatforms {
		envs = append(envs, markers.NewEnvironment(p[0], p[1], pythonVersion))
	}
	return envs
}

// =============================================================================
// Lock
// =============================================================================

// LockOptions configures [Runner.Lock].
type LockOptions struct {
	// ProjectDir is searched (and up to DefaultSearchDepth parents) for a
	// Pipfile. Manifest, when set, names the Pipfile directly.
	ProjectDir string
	Manifest   string

	// SkipDevelop locks only the default section; the develop section of a
	// previous lock is carried over unchanged.
	SkipDevelop bool

	// Pre allows pre-release candidates. The manifest's
	// [pipenv] allow_prereleases enables it as well.
	Pre bool

	// KeepOutdated keeps previously locked versions that still satisfy the
	// manifest, even when newer releases exist.
	KeepOutdated bool
	PinPolicy    resolve.PinPolicy

	// Environments overrides the targets derived from [requires].
	Environments []markers.Environment
	MaxRounds    int

	// Write stores the result as Pipfile.lock next to the manifest.
	Write bool
}

// LockResult is the outcome of [Runner.Lock].
type LockResult struct {
	Lockfile *lock.Lockfile
	// Path is where the artifact lives (or would be written).
	Path string
	// Changed reports whether the encoded artifact differs from the one on
	// disk before the run. Written reports whether it was stored.
	Changed bool
	Written bool
	Stats   LockStats
}

// LockStats contains resolution statistics.
type LockStats struct {
	Packages       int
	Rounds         int
	Duration       time.Duration
	ProviderHits   int64
	ProviderMisses int64
}

// =============================================================================
// Graph
// =============================================================================

// GraphOptions configures [Runner.Graph].
type GraphOptions struct {
	ProjectDir string
	Manifest   string

	// Render selects the output format. It is validated before anything is
	// read.
	Render render.Options

	// Installed uses the environment listing even when a lock exists.
	// Lister must be set for installed graphs; Env, when set, filters
	// installed requirements by marker.
	Installed bool
	Lister    environment.Lister
	Env       markers.Environment

	// SVG renders the node-link diagram to SVG instead of Render's format.
	SVG bool
}

// GraphResult is the outcome of [Runner.Graph].
type GraphResult struct {
	Graph *depgraph.Graph
	// Output holds the rendered text, JSON, DOT or SVG.
	Output []byte
	// Source is SourceLock or SourceInstalled.
	Source string
	// CacheHit reports an SVG served from the artifact cache.
	CacheHit bool
}

// =============================================================================
// Project maintenance
// =============================================================================

// AddOptions configures [Runner.Add].
type AddOptions struct {
	ProjectDir string
	Manifest   string
	// Lines are requirement strings such as "requests[socks]>=2.31".
	Lines []string
	// Dev records the requirements in [dev-packages].
	Dev bool
}

// RequirementsOptions configures [Runner.Requirements].
type RequirementsOptions struct {
	ProjectDir string
	Manifest   string
	// Dev exports the develop section in addition to the default one.
	Dev      bool
	NoHashes bool
}

// CleanOptions configures [Runner.Clean].
type CleanOptions struct {
	ProjectDir string
	Manifest   string
	Lister     environment.Lister
}

// RemoveOptions configures [Runner.Remove].
type RemoveOptions struct {
	ProjectDir string
	Manifest   string
	// Names are package names; they match the Pipfile after normalization.
	Names []string
	// Dev limits removal to [dev-packages]. Otherwise both sections are
	// edited.
	Dev bool
	// SkipLock leaves Pipfile.lock untouched. Otherwise the project is
	// re-locked with Lock's options.
	SkipLock bool
	Lock     LockOptions
}

// Removal records one package removed from one Pipfile section.
type Removal struct {
	Name    string
	Section string
}

// RemoveResult is the outcome of [Runner.Remove].
type RemoveResult struct {
	Removed []Removal
	// Missing lists requested names that no edited section contained.
	Missing []string
	// Lock is nil when SkipLock was set.
	Lock *LockResult
}

// OutdatedOptions configures [Runner.Outdated].
type OutdatedOptions struct {
	ProjectDir string
	Manifest   string
	Pre        bool
	MaxRounds  int
}

// Update is a locked package whose newest admissible version differs from
// the pinned one. Available is empty when the package would drop out of the
// lock.
type Update struct {
	Name      string
	Section   string
	Locked    string
	Available string
}
