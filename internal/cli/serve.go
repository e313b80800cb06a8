package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/adjoint/internal/server"
	"github.com/matzehuels/adjoint/pkg/cache"
)

// shutdownTimeout bounds how long in-flight requests may finish after the
// server is asked to stop.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve evaluations of a graph over HTTP",
		Long: `Load a graph once and serve its evaluation, gradient and diagrams over HTTP.

Routes:
  GET  /healthz         liveness probe
  GET  /graph           the graph in the interchange format
  GET  /graph/info      node, edge and input counts
  GET  /graph.{format}  diagram as dot, svg, pdf or png
  POST /eval            {"inputs": [1, 2]}
  POST /eval/batch      {"batch": [[1, 2], [3, 4]]}`,
		Example: `  adjoint serve graph.json --addr :9090
  curl -d '{"inputs":[1,2]}' localhost:9090/eval`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Serve.Addr
			}
			return c.runServe(cmd.Context(), args[0], addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result and render caches")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, path, addr string, noCache bool) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()
	runner.Keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), "serve:")

	g, err := runner.Load(ctx, path)
	if err != nil {
		return err
	}
	runner.Compile(ctx, g)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           server.New(runner, g, logger),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Info("serving", "addr", ln.Addr().String(), "graph", path, "nodes", g.X.Len())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
