package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklock/pkg/manifest"
	"github.com/matzehuels/stacklock/pkg/pipeline"
)

// verifyCommand creates the verify command. It exits non-zero when the lock
// is stale, which makes it usable as a CI gate.
func (c *CLI) verifyCommand() *cobra.Command {
	var project projectFlags

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that Pipfile.lock matches the Pipfile",
		Long: `Check that Pipfile.lock was computed from the current Pipfile by
comparing the Pipfile fingerprint with the one recorded in the lock.
No package index is contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := pipeline.NewRunner(nil, nil, c.Logger)
			res, err := runner.Verify(project.dir, project.manifest())
			if errors.Is(err, manifest.ErrNotFound) {
				printError(cmd.ErrOrStderr(), "No Pipfile present at project home.")
				return &ExitError{Code: 1}
			}
			if err != nil {
				return err
			}
			if !res.Fresh {
				fmt.Fprintln(cmd.ErrOrStderr(), StyleError.Render("Pipfile.lock is out-of-date."))
				printDetail(cmd.ErrOrStderr(), "%s", res.Reason)
				return &ExitError{Code: 1}
			}
			fmt.Fprintln(cmd.OutOrStdout(), StyleSuccess.Render("Pipfile.lock is up-to-date."))
			return nil
		},
	}

	project.register(cmd)
	return cmd
}
