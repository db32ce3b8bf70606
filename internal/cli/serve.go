package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklock/pkg/api"
	"github.com/matzehuels/stacklock/pkg/cache"
	"github.com/matzehuels/stacklock/pkg/observability"
	"github.com/matzehuels/stacklock/pkg/pipeline"
)

// artifactCacheSize bounds the rendered diagrams kept in memory by serve.
const artifactCacheSize = 256

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		index indexFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lock engine over HTTP",
		Long: `Serve lock, verify and graph as JSON endpoints under /v1, with
Prometheus metrics at /metrics and a health check at /healthz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.newProvider(ctx, index, nil)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			observability.NewMetrics(reg).Install()
			defer observability.Reset()

			artifacts, err := cache.NewMemoryCache(artifactCacheSize)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(p, artifacts, c.Logger)
			defer runner.Close()

			return api.New(runner, reg, c.Logger).ListenAndServe(ctx, addr)
		},
	}

	index.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", api.DefaultAddr, "listen address")
	return cmd
}
