// Package cli implements the stacklock command-line interface.
//
// The commands mirror the lock workflow of a Python project: lock resolves
// the Pipfile into Pipfile.lock, verify checks that the lock is current,
// graph prints the dependency tree, outdated lists available upgrades, and
// add, remove, requirements and clean maintain the project around them.
// serve exposes the same engine over HTTP.
//
// # Configuration
//
// Flags override environment variables, which may also come from a .env file
// in the working directory:
//
//	STACKLOCK_INDEX_URL   package index (default: the Pipfile's first source)
//	STACKLOCK_REDIS_URL   share the metadata cache through Redis
//	STACKLOCK_CACHE_TTL   metadata cache lifetime (default 24h)
//	STACKLOCK_MAX_ROUNDS  resolver round limit
//	STACKLOCK_PIPFILE     explicit Pipfile path
//	XDG_CACHE_HOME        base of the file cache directory
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context; user-facing results go to stdout.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklock/pkg/buildinfo"
	"github.com/matzehuels/stacklock/pkg/cache"
	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/integrations/pypi"
	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/pipeline"
	"github.com/matzehuels/stacklock/pkg/provider"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "stacklock"

	// defaultCacheTTL is how long index responses stay in the metadata cache.
	defaultCacheTTL = 24 * time.Hour

	// defaultRateLimit caps index requests per second.
	defaultRateLimit = 20
)

// Environment variables read by the CLI.
const (
	envIndexURL  = "STACKLOCK_INDEX_URL"
	envRedisURL  = "STACKLOCK_REDIS_URL"
	envCacheTTL  = "STACKLOCK_CACHE_TTL"
	envMaxRounds = "STACKLOCK_MAX_ROUNDS"
	envPipfile   = "STACKLOCK_PIPFILE"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. Debug logging also reports the
// caller.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	c.Logger.SetReportCaller(level <= log.DebugLevel)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Stacklock resolves Pipfiles into reproducible lock files",
		Long:          `Stacklock resolves the requirements of a Pipfile into a pinned, hashed Pipfile.lock, verifies that the lock is current, and shows the resulting dependency graph.`,
		Version:       buildinfo.Resolved(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadDotEnv(".env"); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.lockCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.verifyCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.outdatedCommand())
	root.AddCommand(c.requirementsCommand())
	root.AddCommand(c.cleanCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Exit Handling
// =============================================================================

// ExitError ends the process with Code after the command already reported
// the failure itself.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// Report prints err to w and returns the process exit code.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	printError(w, "%s", errs.UserMessage(err))
	return 1
}

// =============================================================================
// Configuration
// =============================================================================

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// envOr returns the environment value of key, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errs.Usage("invalid %s %q: %v", key, v, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errs.Usage("invalid %s %q", key, v)
	}
	return n, nil
}

// projectFlags locate the project for commands operating on a Pipfile.
type projectFlags struct {
	dir     string
	pipfile string
}

func (p *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.dir, "project", ".", "project directory (searched upwards for a Pipfile)")
	cmd.Flags().StringVar(&p.pipfile, "pipfile", "", "explicit Pipfile path (env "+envPipfile+")")
}

// manifest returns the explicit Pipfile path, if any.
func (p *projectFlags) manifest() string {
	if p.pipfile != "" {
		return p.pipfile
	}
	return os.Getenv(envPipfile)
}

// =============================================================================
// Runner Factory
// =============================================================================

// indexFlags select where package metadata comes from.
type indexFlags struct {
	indexURL  string
	indexFile string
	noCache   bool
}

func (f *indexFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.indexURL, "index-url", "", "package index URL (env "+envIndexURL+")")
	cmd.Flags().StringVar(&f.indexFile, "index-file", "", "resolve offline from a JSON index file")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the metadata cache")
}

// newRunner creates a pipeline runner for CLI use. sources are the Pipfile's
// indexes; the first one is used unless an index URL is configured.
func (c *CLI) newRunner(ctx context.Context, f indexFlags, sources []manifest.Source) (*pipeline.Runner, error) {
	p, err := c.newProvider(ctx, f, sources)
	if err != nil {
		return nil, err
	}
	artifacts, err := newFileCache(f.noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(p, artifacts, c.Logger), nil
}

func (c *CLI) newProvider(ctx context.Context, f indexFlags, sources []manifest.Source) (provider.Provider, error) {
	if f.indexFile != "" {
		c.Logger.Debug("using offline index", "path", f.indexFile)
		idx, err := provider.LoadIndex(f.indexFile)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}

	indexURL := pypi.DefaultIndexURL
	if len(sources) > 0 {
		indexURL = sources[0].URL
	}
	indexURL = envOr(envIndexURL, indexURL)
	if f.indexURL != "" {
		indexURL = f.indexURL
	}
	if err := errs.ValidateURL(indexURL); err != nil {
		return nil, err
	}
	ttl, err := envDuration(envCacheTTL, defaultCacheTTL)
	if err != nil {
		return nil, err
	}
	backend, err := c.newMetadataCache(ctx, f.noCache)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("using package index", "url", indexURL, "cache_ttl", ttl)
	return pypi.NewClient(backend, ttl,
		pypi.WithIndexURL(indexURL),
		pypi.WithRateLimit(defaultRateLimit),
	), nil
}

// newMetadataCache returns the backend for index responses: Redis when
// configured, otherwise the file cache.
func (c *CLI) newMetadataCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if url := os.Getenv(envRedisURL); url != "" {
		c.Logger.Debug("using redis cache")
		return cache.NewRedisCache(ctx, url)
	}
	return newFileCache(false)
}

func newFileCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/stacklock/).
func cacheDir() (string, error) {
	return cache.DefaultDir()
}
