package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklock/pkg/environment"
	errs "github.com/matzehuels/stacklock/pkg/errors"
	stio "github.com/matzehuels/stacklock/pkg/io"
	"github.com/matzehuels/stacklock/pkg/pipeline"
	"github.com/matzehuels/stacklock/pkg/render"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	render    render.Options
	svg       string // output path of the SVG diagram
	installed bool   // graph the environment instead of Pipfile.lock
	python    string // interpreter inspected for installed packages
	noCache   bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		project projectFlags
		opts    graphOpts
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Display the dependency graph",
		Long: `Display the dependency graph of Pipfile.lock, or of the installed
packages when there is no lock (or with --installed).

The default output is an indented tree. --reverse inverts it to show what
requires each package; --json, --json-tree and --dot select machine readable
formats, and --svg writes a rendered node-link diagram.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.render.Validate(); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: "+errs.UserMessage(err))
				return &ExitError{Code: 1}
			}
			return c.runGraph(cmd, project, opts)
		},
	}

	project.register(cmd)
	cmd.Flags().BoolVar(&opts.render.Reverse, "reverse", false, "show the dependency tree inverted")
	cmd.Flags().BoolVar(&opts.render.JSON, "json", false, "output a flat JSON list of packages")
	cmd.Flags().BoolVar(&opts.render.JSONTree, "json-tree", false, "output the dependency tree as nested JSON")
	cmd.Flags().BoolVar(&opts.render.DOT, "dot", false, "output Graphviz DOT source")
	cmd.Flags().BoolVar(&opts.render.ShowAll, "all", false, "list every package at the top level")
	cmd.Flags().BoolVar(&opts.render.Detailed, "detailed", false, "show versions and specifiers in diagrams")
	cmd.Flags().StringVar(&opts.svg, "svg", "", "write an SVG diagram to `FILE`")
	cmd.Flags().BoolVar(&opts.installed, "installed", false, "graph the installed packages even if Pipfile.lock exists")
	cmd.Flags().StringVar(&opts.python, "python", environment.DefaultPython, "interpreter to inspect for installed packages")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the diagram cache")

	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, project projectFlags, opts graphOpts) error {
	ctx := cmd.Context()
	artifacts, err := newFileCache(opts.noCache)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(nil, artifacts, c.Logger)
	defer runner.Close()

	res, err := withSpinner(ctx, cmd.ErrOrStderr(), "Building graph...", func() (*pipeline.GraphResult, error) {
		return runner.Graph(ctx, pipeline.GraphOptions{
			ProjectDir: project.dir,
			Manifest:   project.manifest(),
			Render:     opts.render,
			Installed:  opts.installed,
			Lister:     environment.PipInspect{Python: opts.python},
			SVG:        opts.svg != "",
		})
	})
	if err != nil {
		return err
	}
	loggerFromContext(ctx).Debug("graph source", "source", res.Source, "nodes", res.Graph.NodeCount())
	if res.Source == pipeline.SourceInstalled && !opts.installed {
		printWarning(cmd.ErrOrStderr(), "No Pipfile.lock found, showing installed packages")
	}

	if opts.svg == "" {
		_, err := cmd.OutOrStdout().Write(res.Output)
		return err
	}
	return writeArtifact(cmd, opts.svg, res.Output)
}

func writeArtifact(cmd *cobra.Command, path string, data []byte) error {
	if err := stio.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess(cmd.OutOrStdout(), "Rendered diagram")
	printFile(cmd.OutOrStdout(), path)
	return nil
}
