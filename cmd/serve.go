package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"realestate-market/api"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background refresh scheduler.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		a := newApp(cfg, logger)
		logger.Info("=== Real-estate market service starting (%s) ===", version)
		logger.Info("Config — port: %d | cache TTL: %s | interval: %s | 999md: %t",
			cfg.Port, cfg.CacheTTL, cfg.ScrapingInterval, cfg.Enable999MDScraper)

		if cfg.SchedulerAutoStart {
			if err := a.scheduler.Start(); err != nil {
				return err
			}
		} else {
			logger.Info("Scheduler auto-start disabled — cache fills on demand")
		}

		router := api.NewRouter(api.Deps{
			Market:      a.market,
			Cache:       a.cache,
			Scheduler:   a.scheduler,
			Logger:      logger,
			CORSOrigins: cfg.CORSOrigins,
			Version:     version,
		})
		server := api.NewServer(fmt.Sprintf(":%d", cfg.Port), router)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Server listening on :%d", cfg.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			a.scheduler.Stop()
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("Shutting down gracefully...")
		a.scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (default 8080)")
	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
