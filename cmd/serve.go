package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/merchstats/reportgate/internal/audit"
	"github.com/merchstats/reportgate/internal/auth"
	"github.com/merchstats/reportgate/internal/db/bunx"
	"github.com/merchstats/reportgate/internal/ratelimit"
	"github.com/merchstats/reportgate/internal/reports"
	"github.com/merchstats/reportgate/internal/repository"
	"github.com/merchstats/reportgate/internal/server"
	"github.com/merchstats/reportgate/internal/services/iam"
)

const auditQueueSize = 256

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reporting gateway",
	Long:  `Starts the HTTP server exposing the reporting endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to database")

		// Initialize repositories
		userRepo := repository.NewBunUserRepository(db)
		auditRepo := repository.NewBunReportAuditRepository(db)

		// Identity verification: local HS256 when a shared secret is
		// configured, remote introspection otherwise.
		verifier, err := auth.NewVerifier(&cfg.Identity)
		if err != nil {
			return fmt.Errorf("configure identity verifier: %w", err)
		}

		resolver := iam.NewResolver(userRepo, cfg.RoleCacheTTL)

		limiter := ratelimit.New(ratelimit.Config{
			Burst:          cfg.RateLimitBurst,
			RefillInterval: cfg.RateRefillInterval,
			RefillAmount:   cfg.RateRefillAmount,
		})
		defer limiter.Close()

		auditWorker := audit.NewWorker(auditRepo, auditQueueSize)
		defer auditWorker.Close()

		dispatcher := reports.NewBunDispatcher(db, cfg.RPCTimeout)
		reportService := reports.NewService(dispatcher).WithAuditSink(auditWorker)

		r := server.NewRouter(server.RouterOptions{
			Reports:  reportService,
			Verifier: verifier,
			Resolver: resolver,
			Limiter:  limiter,
			Cfg:      cfg,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.RPCTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Wait for interrupt signal
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
