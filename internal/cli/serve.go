package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fixter/internal/config"
	"fixter/internal/cron"
	"fixter/internal/gateway"
	"fixter/internal/gateway/websocket"
	"fixter/pkg/logger"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Fixter gateway server",
		Long: `Start the Fixter gateway server.

This command starts the HTTP gateway that provides:
- REST endpoints for asking questions, sessions and variables
- WebSocket streaming of agent steps and new extractions
- Prometheus metrics
- Scheduled session pruning and key/value cleanup

The server listens on the configured host and port (default: 127.0.0.1:8788).`,
		Example: `  # Start server with default configuration
  fixter serve

  # Start server with custom port
  fixter serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().String("host", "", "host to bind to (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cliCtx, err := mustContext(cmd)
	if err != nil {
		return err
	}

	cfg := cliCtx.Config
	log := cliCtx.Logger

	// Override config with flags if provided
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Gateway.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Gateway.Host = host
	}

	hub := websocket.NewHub()
	a, err := cliCtx.Assistant(hub)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	store, err := cliCtx.Vars()
	if err != nil {
		return err
	}
	db, err := cliCtx.GetStorage()
	if err != nil {
		return err
	}

	sched := cron.NewScheduler(time.Local)
	for _, job := range cron.MaintenanceJobs(cfg.Session.CleanupSchedule, a.Sessions(), db, cfg.Session.MaxAge) {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
	}

	srv, err := gateway.NewServer(cfg.Gateway.Addr(), gateway.Deps{
		Assistant:  a,
		Sessions:   a.Sessions(),
		Vars:       store,
		Jobs:       sched,
		Hub:        hub,
		Version:    Version,
		Provider:   cfg.LLM.Provider,
		Model:      modelName(cfg),
		WatchPaths: []string{cfg.Workspace.ExtractionsDir()},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 配置热更新只影响日志级别
	config.Watch(func(c *config.Config) {
		logger.SetLevel(c.Log.Level)
		log.Info().Str("level", c.Log.Level).Msg("Log level reloaded")
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if serr := sched.Stop(shutdownCtx); serr != nil {
			log.Warn().Err(serr).Msg("Scheduler did not stop cleanly")
		}
		if serr := a.Sessions().SaveAll(); serr != nil {
			log.Warn().Err(serr).Msg("Failed to flush sessions")
		}
		return err
	})

	log.Info().
		Str("address", "http://"+cfg.Gateway.Addr()).
		Msg("Server started")

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

func modelName(cfg *config.Config) string {
	if cfg.LLM.Provider == "ollama" {
		return cfg.Ollama.Model
	}
	return cfg.LLM.Model
}
