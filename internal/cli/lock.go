package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/pipeline"
	"github.com/matzehuels/stacklock/pkg/resolve"
)

// lockCommand creates the lock command.
func (c *CLI) lockCommand() *cobra.Command {
	var (
		project      projectFlags
		index        indexFlags
		dev          bool
		pre          bool
		keepOutdated bool
		preferLatest bool
	)

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Resolve the Pipfile and write Pipfile.lock",
		Long: `Resolve every requirement of the Pipfile, including transitive ones, to
exact versions with artifact hashes and write them to Pipfile.lock next to it.

Versions from an existing Pipfile.lock are tried first while they still fit;
use --prefer-latest to ignore them, or --keep-outdated to keep them even when
newer releases exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.projectRunner(ctx, project, index)
			if err != nil {
				return err
			}
			defer runner.Close()

			maxRounds, err := envInt(envMaxRounds, 0)
			if err != nil {
				return err
			}
			opts := pipeline.LockOptions{
				ProjectDir:   project.dir,
				Manifest:     project.manifest(),
				SkipDevelop:  !dev,
				Pre:          pre,
				KeepOutdated: keepOutdated,
				MaxRounds:    maxRounds,
				Write:        true,
			}
			if preferLatest {
				opts.PinPolicy = resolve.PreferLatest
			}

			prog := newProgress(loggerFromContext(ctx))
			res, err := withSpinner(ctx, cmd.ErrOrStderr(), "Locking dependencies...", func() (*pipeline.LockResult, error) {
				return runner.Lock(ctx, opts)
			})
			if err != nil {
				return err
			}
			prog.done("locked", "packages", res.Stats.Packages, "rounds", res.Stats.Rounds)

			out := cmd.OutOrStdout()
			printSuccess(out, "Wrote %s", filepath.Base(res.Path))
			printFile(out, res.Path)
			printLockStats(out, len(res.Lockfile.Default.Entries), len(res.Lockfile.Develop.Entries), res.Stats.Rounds, res.Changed)
			return nil
		},
	}

	project.register(cmd)
	index.register(cmd)
	cmd.Flags().BoolVar(&dev, "dev", true, "also lock [dev-packages]")
	cmd.Flags().BoolVar(&pre, "pre", false, "allow pre-release versions")
	cmd.Flags().BoolVar(&keepOutdated, "keep-outdated", false, "keep locked versions that still satisfy the Pipfile")
	cmd.Flags().BoolVar(&preferLatest, "prefer-latest", false, "ignore versions from the existing Pipfile.lock")
	cmd.MarkFlagsMutuallyExclusive("keep-outdated", "prefer-latest")

	return cmd
}

// projectRunner loads the project's Pipfile to pick its index and creates a
// runner for it.
func (c *CLI) projectRunner(ctx context.Context, project projectFlags, index indexFlags) (*pipeline.Runner, error) {
	path, err := pipeline.ManifestPath(project.dir, project.manifest())
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return c.newRunner(ctx, index, m.Sources())
}
