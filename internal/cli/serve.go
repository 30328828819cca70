package cli

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/phaseflow/internal/server"
	"github.com/matzehuels/phaseflow/pkg/observability"
	"github.com/matzehuels/phaseflow/pkg/session"
	"github.com/matzehuels/phaseflow/pkg/summary"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API: submit flows, toggle nodes, render diagrams and proxy
the summarization service. Sessions use the backend from the [sessions]
config section; Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()
			sessions, err := c.newSessionStore(ctx)
			if err != nil {
				return err
			}
			defer sessions.Close()
			client, err := c.newSummaryClient("", runner.Cache)
			if err != nil {
				return err
			}
			popts, err := c.pipelineOptions()
			if err != nil {
				return err
			}

			deps := server.Deps{
				Runner:       runner,
				Sessions:     sessions,
				Summarizer:   client,
				Logger:       c.Logger,
				Pipeline:     popts,
				SessionTTL:   cfg.Sessions.TTL,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
			}
			if !noMetrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				observability.NewPrometheus(reg).Register()
				defer observability.Reset()
				deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
			}
			srv := server.New(deps)

			c.Logger.Info("starting server",
				"addr", addr,
				"sessions", cfg.Sessions.Backend,
				"cache", cfg.Cache.Backend,
				"summarizer", client.URL())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx, addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
			})
			g.Go(func() error {
				return srv.CleanupSessions(gctx, cleanupInterval(cfg.Sessions.TTL))
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")
	return cmd
}

// cleanupInterval sweeps expired sessions a few times per TTL.
func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return max(ttl/4, time.Minute)
}

var _ server.Summarizer = (*summary.Client)(nil)
