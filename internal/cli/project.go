package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklock/pkg/environment"
	errs "github.com/matzehuels/stacklock/pkg/errors"
	"github.com/matzehuels/stacklock/pkg/pipeline"
)

// addCommand creates the add command.
func (c *CLI) addCommand() *cobra.Command {
	var (
		project projectFlags
		dev     bool
	)

	cmd := &cobra.Command{
		Use:   "add <requirement>...",
		Short: "Add requirements to the Pipfile",
		Long: `Add PEP 508 requirements to the Pipfile, creating it when the project
has none. Run lock afterwards to update Pipfile.lock.`,
		Example: `  stacklock add requests "flask>=3"
  stacklock add --dev pytest`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := pipeline.NewRunner(nil, nil, c.Logger)
			reqs, err := runner.Add(pipeline.AddOptions{
				ProjectDir: project.dir,
				Manifest:   project.manifest(),
				Lines:      args,
				Dev:        dev,
			})
			if err != nil {
				return err
			}
			for _, req := range reqs {
				printSuccess(cmd.OutOrStdout(), "Added %s", StyleHighlight.Render(req.String()))
			}
			return nil
		},
	}

	project.register(cmd)
	cmd.Flags().BoolVar(&dev, "dev", false, "add to [dev-packages]")
	return cmd
}

// requirementsCommand creates the requirements command.
func (c *CLI) requirementsCommand() *cobra.Command {
	var (
		project  projectFlags
		dev      bool
		noHashes bool
	)

	cmd := &cobra.Command{
		Use:   "requirements",
		Short: "Export Pipfile.lock as requirements.txt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := pipeline.NewRunner(nil, nil, c.Logger)
			lines, err := runner.Requirements(pipeline.RequirementsOptions{
				ProjectDir: project.dir,
				Manifest:   project.manifest(),
				Dev:        dev,
				NoHashes:   noHashes,
			})
			if err != nil {
				return err
			}
			if len(lines) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			}
			return nil
		},
	}

	project.register(cmd)
	cmd.Flags().BoolVar(&dev, "dev", false, "include the develop section")
	cmd.Flags().BoolVar(&noHashes, "no-hashes", false, "omit --hash options")
	return cmd
}

// cleanCommand creates the clean command. Stacklock does not install or
// remove packages, so only --dry-run is supported.
func (c *CLI) cleanCommand() *cobra.Command {
	var (
		project projectFlags
		dryRun  bool
		python  string
	)

	cmd := &cobra.Command{
		Use:   "clean --dry-run",
		Short: "List installed packages that are not in Pipfile.lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !dryRun {
				return errs.Usage("clean only plans removals; pass --dry-run")
			}
			runner := pipeline.NewRunner(nil, nil, c.Logger)
			ctx := cmd.Context()
			names, err := withSpinner(ctx, cmd.ErrOrStderr(), "Inspecting environment...", func() ([]string, error) {
				return runner.Clean(ctx, pipeline.CleanOptions{
					ProjectDir: project.dir,
					Manifest:   project.manifest(),
					Lister:     environment.PipInspect{Python: python},
				})
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				printInfo(out, "Nothing to remove")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}

	project.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the packages that would be removed")
	cmd.Flags().StringVar(&python, "python", environment.DefaultPython, "interpreter whose packages are inspected")
	return cmd
}
