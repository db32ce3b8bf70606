package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklock/pkg/pipeline"
)

// removeCommand creates the remove command.
func (c *CLI) removeCommand() *cobra.Command {
	var (
		project  projectFlags
		index    indexFlags
		dev      bool
		skipLock bool
	)

	cmd := &cobra.Command{
		Use:   "remove <package>...",
		Short: "Remove packages from the Pipfile and re-lock",
		Long: `Remove packages from [packages] and [dev-packages] (only the latter with
--dev), then resolve the Pipfile again and rewrite Pipfile.lock.`,
		Example: `  stacklock remove requests
  stacklock remove --dev pytest`,
		Args: cobra.MinimumNArgs(1),
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
			res, err := withSpinner(ctx, cmd.ErrOrStderr(), "Removing packages...", func() (*pipeline.RemoveResult, error) {
				return runner.Remove(ctx, pipeline.RemoveOptions{
					ProjectDir: project.dir,
					Manifest:   project.manifest(),
					Names:      args,
					Dev:        dev,
					SkipLock:   skipLock,
					Lock:       pipeline.LockOptions{MaxRounds: maxRounds},
				})
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range res.Removed {
				printSuccess(out, "Removed %s from Pipfile category %s", StyleHighlight.Render(r.Name), r.Section)
			}
			for _, name := range res.Missing {
				printWarning(cmd.ErrOrStderr(), "No package %s to remove from Pipfile", name)
			}
			if res.Lock != nil {
				printSuccess(out, "Wrote %s", filepath.Base(res.Lock.Path))
				printFile(out, res.Lock.Path)
			}
			return nil
		},
	}

	project.register(cmd)
	index.register(cmd)
	cmd.Flags().BoolVar(&dev, "dev", false, "only remove from [dev-packages]")
	cmd.Flags().BoolVar(&skipLock, "skip-lock", false, "edit the Pipfile without re-locking")
	return cmd
}

// outdatedCommand creates the outdated command.
func (c *CLI) outdatedCommand() *cobra.Command {
	var (
		project projectFlags
		index   indexFlags
		pre     bool
	)

	cmd := &cobra.Command{
		Use:   "outdated",
		Short: "List locked packages with newer versions available",
		Long: `Resolve the Pipfile against the newest releases, without writing anything,
and list the packages whose locked version would change. Exits 1 when any
package is out of date.`,
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
			updates, err := withSpinner(ctx, cmd.ErrOrStderr(), "Checking for updates...", func() ([]pipeline.Update, error) {
				return runner.Outdated(ctx, pipeline.OutdatedOptions{
					ProjectDir: project.dir,
					Manifest:   project.manifest(),
					Pre:        pre,
					MaxRounds:  maxRounds,
				})
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(updates) == 0 {
				printSuccess(out, "All packages are up to date!")
				return nil
			}
			for _, u := range updates {
				available := "'==" + u.Available + "' available"
				if u.Available == "" {
					available = "no longer required"
				}
				printInfo(out, "Package %s out-of-date: '==%s' locked, %s.", StyleHighlight.Render("'"+u.Name+"'"), u.Locked, available)
			}
			return &ExitError{Code: 1}
		},
	}

	project.register(cmd)
	index.register(cmd)
	cmd.Flags().BoolVar(&pre, "pre", false, "consider pre-release versions")
	return cmd
}
