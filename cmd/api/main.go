package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/beboard/backend/internal/cache"
	"github.com/beboard/backend/internal/config"
	"github.com/beboard/backend/internal/database"
	"github.com/beboard/backend/internal/handlers"
	"github.com/beboard/backend/internal/notify"
	"github.com/beboard/backend/internal/server"
	"github.com/beboard/backend/internal/services"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	publisher, err := notify.NewRedisPublisher(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer publisher.Close()

	store, err := cache.NewRedisFromURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	clock := clockwork.NewRealClock()
	svc := services.New(db.GetDB(), clock, publisher, store)

	// Promote due challenges in the background.
	scheduler, err := svc.Challenges.StartScheduler()
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer func() { _ = scheduler.Shutdown() }()

	// Relay published notifications to live SSE sessions.
	hub := notify.NewHub()
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	go func() {
		if err := hub.Run(relayCtx, cfg.RedisURL); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Notification relay stopped: %v", err)
		}
	}()

	handler := handlers.NewHandler(db.GetDB(), svc, hub, []byte(cfg.JWTSecret))
	apiServer := server.NewServer(cfg, db, handler)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, done)

	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}

	<-done
	log.Println("Graceful shutdown complete.")
}
