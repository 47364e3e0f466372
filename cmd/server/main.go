package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"canvas/internal/api"
	"canvas/internal/config"
	"canvas/internal/events"
	"canvas/internal/persist"
	"canvas/internal/routers"
	"canvas/internal/session"
	storemongo "canvas/internal/storage/mongo"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	client, err := storemongo.NewClient(context.Background(), cfg.MongoURI)
	if err != nil {
		logger.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	store := storemongo.NewCanvasRepo(client, cfg.MongoDatabase, cfg.MongoCollection)

	registry := session.NewRegistry()
	manager := session.NewManager(registry, store, logger)
	scheduler := persist.New(store, registry, logger, cfg.PersistDelay, cfg.PersistTimeout)
	router := session.NewRouter(manager, scheduler, logger)

	publisher := events.NewPublisher(cfg.RedisAddr, logger)
	defer publisher.Close()
	scheduler.OnPersist = func(roomID string) {
		publisher.Publish(context.Background(), events.Event{
			Type: events.TypeCanvasPersisted, RoomID: roomID,
		})
	}

	handlers := api.NewHandlers(logger, registry, manager, router, store, publisher, []byte(cfg.JWTSecret))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: routers.New(handlers),
		// No Read/WriteTimeout: websocket connections are long-lived.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("canvas service starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("canvas service shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Persist anything still inside a debounce window before exit.
	scheduler.Flush()

	logger.Info("canvas service exited")
}
