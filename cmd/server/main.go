package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mesa-cafe/api/internal/config"
	"github.com/mesa-cafe/api/internal/handler"
	"github.com/mesa-cafe/api/internal/messaging"
	"github.com/mesa-cafe/api/internal/router"
	"github.com/mesa-cafe/api/internal/store"
	"github.com/mesa-cafe/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	queries := store.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	// Kitchen events are optional: without RABBITMQ_URL the kitchen display
	// still works over websocket, just without the durable queue.
	var kitchen handler.KitchenPublisher
	if cfg.RabbitMQURL != "" {
		conn, err := messaging.Connect(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		publisher := messaging.NewPublisher(conn)
		defer publisher.Close()
		kitchen = publisher
	}

	r := router.New(cfg, queries, pool, hub, kitchen)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
	}
	log.Println("Server stopped")
}
