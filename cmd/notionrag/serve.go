package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/quota"
	"github.com/hyperjump/notionrag/internal/server"
	"github.com/hyperjump/notionrag/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Long: `Serve the assistant over HTTP with per-user daily limits.

Users are identified by the X-User-Email header, or by an HS256 bearer token
when server.jwt_secret (NOTIONRAG_JWT_SECRET) is set. The index is reloaded
automatically after 'notionrag ingest' rebuilds it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if host != "" {
				a.cfg.Server.Host = host
			}
			if port > 0 {
				a.cfg.Server.Port = port
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config, localhost)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config, 8080)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.ValidateQuery(); err != nil {
		return failed("Error: ", err)
	}

	p, err := a.pipeline(ctx, nil, true)
	if err != nil {
		return failed("Error: ", err)
	}
	defer p.Close()
	if err := p.Reload(ctx); err != nil {
		if !errors.Is(err, indexer.ErrNoIndex) {
			return failed("Error: ", err)
		}
		logger.Warn("no index yet; queries return 503 until 'notionrag ingest' runs", zap.String("index_dir", cfg.Index.Dir))
	}

	limiter, err := quota.NewLimiterFromConfig(ctx, cfg.Quota, logger)
	if err != nil {
		return failed("Error: ", err)
	}
	defer limiter.Close()

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	if cfg.Server.WatchIndexOrDefault() {
		w := watcher.NewWatcher(cfg.Index.Dir, func() {
			if err := p.Reload(watchCtx); err != nil {
				logger.Warn("index reload failed", zap.Error(err))
				return
			}
			logger.Info("index reloaded", zap.String("index_dir", cfg.Index.Dir))
		}, watcher.WithLogger(logger))
		if err := w.Start(watchCtx); err != nil {
			return failed("Error: ", err)
		}
		defer w.Stop()
	}

	srv := server.NewServer(p, limiter, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return failed("Error: ", fmt.Errorf("server failed: %w", err))
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
