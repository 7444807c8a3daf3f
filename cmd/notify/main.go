package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/slotwise/schedulr/internal/notify"
	"github.com/slotwise/schedulr/internal/repo/postgres"
	"github.com/slotwise/schedulr/pkg/config"
	"github.com/slotwise/schedulr/pkg/database"
	"github.com/slotwise/schedulr/pkg/events"
	"github.com/slotwise/schedulr/pkg/logger"
	mw "github.com/slotwise/schedulr/pkg/middleware"
)

// Standalone notification worker: consumes booking events off NATS and
// appends in-app notification rows. Can run alongside the API or on its own;
// the queue group makes delivery at-least-once across replicas.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	worker := notify.NewWorker(eventBus, postgres.NewNotificationRepo(pool))
	if err := worker.Start(); err != nil {
		logger.Error("Failed to start notification worker", "error", err)
		os.Exit(1)
	}

	// Health endpoint only; all real traffic arrives over the bus.
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Logging)
	r.Use(mw.Health)

	srv := &http.Server{
		Addr:         ":8086",
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down notify worker...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Notify worker shutdown error", "error", err)
		}
	}()

	logger.Info("Starting notify worker", "port", "8086")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Notify worker error", "error", err)
		os.Exit(1)
	}
}
