package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendsense/config"
	httpLayer "spendsense/http"
	"spendsense/logger"
	"spendsense/repository"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	decisions, explanations := buildServices(cfg, log, false)

	sessions := buildSessionRepository(cfg)
	if redisRepo, ok := sessions.(*repository.RedisSessionRepository); ok {
		defer redisRepo.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisRepo.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Address, err)
		}
	}

	handler := httpLayer.NewEvaluationHandler(decisions, explanations, sessions, log)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit.Capacity, config.GetDuration(cfg.RateLimit.Refill))
	defer rateLimiter.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httpLayer.NewRouter(handler, rateLimiter, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		IdleTimeout:  config.GetDuration(cfg.Server.IdleTimeout),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", map[string]interface{}{
			"address":            cfg.Server.Address,
			"remote_explanation": explanations.RemoteEnabled(),
			"session_store":      cfg.Session.Store,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("error starting server: %w", err)
	case <-quit:
		log.Info("shutting down server", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("error during server shutdown", map[string]interface{}{"error": err.Error()})
		return err
	}

	log.Info("server exited", nil)
	return nil
}
