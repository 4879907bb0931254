package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/spacesedan/tweet-sentiment/config"
	"github.com/spacesedan/tweet-sentiment/internal/analyzer"
	"github.com/spacesedan/tweet-sentiment/internal/artifacts"
	"github.com/spacesedan/tweet-sentiment/internal/clients"
	"github.com/spacesedan/tweet-sentiment/internal/inference"
	"github.com/spacesedan/tweet-sentiment/internal/metrics"
	"github.com/spacesedan/tweet-sentiment/internal/monitoring"
	"github.com/spacesedan/tweet-sentiment/internal/sentiment"
	"github.com/spacesedan/tweet-sentiment/internal/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	cmd.Flags().BoolVar(&cfg.LazyLoad, "lazy", cfg.LazyLoad, "load artifacts on the first request instead of at startup")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	store := artifacts.NewStore(artifacts.NewLoader(cfg.Artifacts).Load)
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("[Main] Failed to release artifacts", slog.String("error", err.Error()))
		}
		if err := inference.DestroyRuntime(); err != nil {
			slog.Warn("[Main] Failed to shut down onnxruntime", slog.String("error", err.Error()))
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)
	opts := []analyzer.Option{analyzer.WithMetrics(m)}
	if cfg.Baseline {
		opts = append(opts, analyzer.WithBaseline(sentiment.Baseline))
	}

	var cacheHealthy *atomic.Bool
	if cfg.Valkey.Enabled() {
		cache, err := clients.NewValkeyClient(cfg.Valkey)
		if err != nil {
			slog.Warn("[Main] Prediction cache unavailable, continuing without it",
				slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			cacheHealthy = &atomic.Bool{}
			cacheHealthy.Store(true)
			go monitoring.MonitorCacheHealth(ctx, cache, cacheHealthy, monitoring.HEALTHCHECK_TIMER)
			opts = append(opts, analyzer.WithCache(cache, cacheHealthy))
		}
	}

	svc := analyzer.NewService(store, opts...)
	if !cfg.LazyLoad {
		if err := svc.Warmup(); err != nil {
			// keep serving; every prediction reports unavailable
			slog.Error("[Main] Artifacts failed to load, serving in degraded mode",
				slog.String("error", err.Error()))
		}
	}

	router, err := server.Setup(server.Dependencies{
		Analyzer:    svc,
		Artifacts:   cfg.Artifacts,
		CacheHealth: cacheHealthy,
		Gatherer:    prometheus.DefaultGatherer,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[Main] Starting server", slog.String("address", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("[Main] Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("[Main] Server stopped")
	return nil
}
