package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gluk-w/claworc/launchpad-ai/internal/api"
	"github.com/gluk-w/claworc/launchpad-ai/internal/billing"
	"github.com/gluk-w/claworc/launchpad-ai/internal/config"
	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
	"github.com/gluk-w/claworc/launchpad-ai/internal/logging"
	"github.com/gluk-w/claworc/launchpad-ai/internal/orchestrator"
	"github.com/gluk-w/claworc/launchpad-ai/internal/providers"
	"github.com/gluk-w/claworc/launchpad-ai/internal/proxy"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	config.Load()
	if err := logging.Init(); err != nil {
		return err
	}
	defer logging.Sync()
	log := logging.L()

	if err := database.Init(); err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	defer database.Close()

	srv := &http.Server{
		Addr:              config.Cfg.ListenAddr,
		Handler:           newHandler(log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		log.Info("launchpad-ai starting", zap.String("addr", config.Cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("launchpad-ai stopped with error", zap.Error(err))
		return err
	}
	log.Info("launchpad-ai stopped")
	return nil
}

// newHandler applies the backend overrides from config and wires the
// service on the global database.
func newHandler(log *zap.Logger) http.Handler {
	if config.Cfg.AnthropicURL != "" {
		providers.SetCustomUpstream(providers.BackendText, config.Cfg.AnthropicURL)
	}
	if config.Cfg.GeminiURL != "" {
		providers.SetCustomUpstream(providers.BackendVision, config.Cfg.GeminiURL)
	}
	if config.Cfg.TextModel != "" {
		providers.SetModel(providers.BackendText, config.Cfg.TextModel)
	}
	if config.Cfg.VisionModel != "" {
		providers.SetModel(providers.BackendVision, config.Cfg.VisionModel)
	}

	client := providers.NewDefaultClient(proxy.ResolveKey,
		providers.WithMaxConcurrent(config.Cfg.MaxConcurrentCalls),
		providers.WithLogger(log.Named("providers")))
	store := billing.NewGormStore(database.DB)
	governor := billing.NewGovernor(store, billing.WithGovernorLogger(log.Named("billing")))
	orch := orchestrator.New(client, governor,
		orchestrator.WithLogger(log.Named("orchestrator")),
		orchestrator.WithCallTimeout(config.Cfg.CallTimeout))

	gen := api.NewGeneration(orch, governor, store, log.Named("api"))
	return api.NewRouter(gen, proxy.NewRateLimiter(config.Cfg.RequestsPerMinute))
}
