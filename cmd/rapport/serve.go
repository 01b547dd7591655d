package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/rapport"
	httpAdapter "github.com/aretw0/rapport/pkg/adapters/http"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/observability"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conversation HTTP server",
	Long: `Serves generated conversations over a JSON API with server-sent events.
Idle sessions are pruned every RAPPORT_SESSION_IDLE. Pass --graph to allow
hybrid sessions seeded from an authored graph.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		graphPath, _ := cmd.Flags().GetString("graph")
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		b, err := newBackends(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		eng, err := newEngine(cfg, graphPath, b, reg, true)
		if err != nil {
			return err
		}
		defer eng.Close()

		metrics := observability.NewMetrics(reg)
		sessions := session.NewManager(b.store, session.WithLogger(logger))
		base := conversationConfig(cfg)
		build := func(ctx context.Context, id string, req httpAdapter.CreateSessionRequest, hooks domain.LifecycleHooks) (*rapport.Orchestrator, error) {
			conv := base
			conv.Persona = req.Persona
			conv.Scenario = req.Scenario
			conv.Profile = req.Profile
			return eng.Converse(id, conv, req.Hybrid, rapport.WithPlayHooks(observability.Merge(
				observability.DebugHooks(logger),
				metrics.Hooks(),
				hooks,
			)))
		}

		api := httpAdapter.NewServer(sessions, build,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithGatherer(reg),
		)
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cmd.Context()
		go pruneSessions(ctx, sessions, cfg.SessionIdle)

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting rapport server", "addr", srv.Addr, "provider", cfg.Provider)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil

		case <-ctx.Done():
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("failed to close server: %w", err)
				}
			}
			logger.Info("rapport server stopped")
			return nil
		}
	},
}

// pruneSessions drops idle and finished sessions until ctx ends.
func pruneSessions(ctx context.Context, sessions *session.Manager, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(idle); n > 0 {
				logger.Debug("pruned sessions", "count", n)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Listen address (overrides RAPPORT_ADDR)")
	serveCmd.Flags().String("graph", "", "Graph file for hybrid sessions")
}
