package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/omarfoud/pdf-text-searcher/internal/api"
	"github.com/omarfoud/pdf-text-searcher/internal/async"
	"github.com/omarfoud/pdf-text-searcher/internal/index"
	"github.com/omarfoud/pdf-text-searcher/internal/logging"
	"github.com/omarfoud/pdf-text-searcher/internal/mcp"
	"github.com/omarfoud/pdf-text-searcher/internal/search"
	"github.com/omarfoud/pdf-text-searcher/internal/telemetry"
)

type serveOptions struct {
	transport string
	httpAddr  string
	noMCP     bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search to MCP clients and over HTTP",
		Long: `Start the MCP server on stdio and, with --http, the HTTP API.

The collection is indexed in the background; queries are answered from
the committed index while it runs. Logs go to ~/.doctext/logs/ because
stdout carries the MCP protocol.

Examples:
  doctext serve
  doctext serve --http 127.0.0.1:8080
  doctext serve --no-mcp --http :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, collectionDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "MCP transport (default server.transport)")
	cmd.Flags().StringVar(&opts.httpAddr, "http", "", "Also serve the HTTP API on this address (default server.http_addr)")
	cmd.Flags().BoolVar(&opts.noMCP, "no-mcp", false, "Serve only the HTTP API")

	return cmd
}

func runServe(ctx context.Context, dir string, opts serveOptions) error {
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if opts.transport == "" {
		opts.transport = cfg.Server.Transport
	}
	if opts.httpAddr == "" {
		opts.httpAddr = cfg.Server.HTTPAddr
	}
	if opts.noMCP && opts.httpAddr == "" {
		return errors.New("--no-mcp needs --http")
	}

	// Nothing but protocol messages may reach stdout, and MCP hosts often
	// surface stderr as errors.
	logCfg := logging.StdioSafeConfig(cfg.Server.LogLevel)
	if opts.noMCP {
		logCfg = logging.DefaultConfig()
		logCfg.Level = cfg.Server.LogLevel
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	if err := installLogger(logCfg); err != nil {
		return err
	}
	if !debugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	sc, err := newScanner(cfg)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	queryMetrics := telemetry.NewQueryMetrics()
	engine, err := search.New(st, searchOptions(cfg),
		search.WithMetrics(metrics),
		search.WithQueryMetrics(queryMetrics))
	if err != nil {
		return err
	}

	bg := async.NewBackgroundIndexer(func(ctx context.Context, progress *async.IndexProgress) error {
		ix, err := index.New(st,
			index.WithRenderer(progress),
			index.WithMetrics(metrics),
			index.WithLockFile(cfg.LockPath()),
			index.WithWorkers(cfg.Index.Workers))
		if err != nil {
			return err
		}
		coll, err := sc.Collection(ctx)
		if err != nil {
			return err
		}
		_, err = ix.IndexAll(ctx, coll, index.Options{Prune: !cfg.Index.KeepRemoved})
		return err
	})
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	bg.Start(ctx)
	defer bg.Stop()
	indexed := make(chan struct{})
	go func() {
		_ = bg.Wait()
		close(indexed)
	}()

	g, gctx := errgroup.WithContext(ctx)

	if !opts.noMCP {
		srv, err := mcp.NewServer(engine, st, cfg)
		if err != nil {
			return err
		}
		srv.SetIndexProgress(bg.Progress())
		srv.SetQueryMetrics(queryMetrics)

		g.Go(func() error {
			// Documents become resources once the first index run settles.
			select {
			case <-indexed:
			case <-gctx.Done():
				return nil
			}
			if err := srv.RegisterResources(gctx); err != nil {
				slog.Warn("register_resources_failed", slog.String("error", err.Error()))
			}
			return nil
		})
		g.Go(func() error {
			// The session ends when the client disconnects.
			if opts.httpAddr == "" {
				defer cancel()
			}
			return srv.Serve(gctx, opts.transport)
		})
	}

	if opts.httpAddr != "" {
		handler := api.New(engine, st, cfg,
			api.WithMetrics(metrics),
			api.WithProgress(bg.Progress())).Router()
		g.Go(func() error {
			return api.Serve(gctx, opts.httpAddr, handler)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
