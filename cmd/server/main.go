package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"broadcast-service/internal/auth"
	"broadcast-service/internal/broadcast"
	"broadcast-service/internal/config"
	"broadcast-service/internal/database"
	"broadcast-service/internal/server"
)

func main() {
	// Load configuration; invalid configuration fails here, not at request time
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	slog.Info("Starting broadcast server")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection for user lookups
	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	users := auth.NewUserRepository(db)
	verifier := auth.NewVerifier(users, cfg.JWT.Secret)

	// Connection registry and channel authorization rules
	registry := broadcast.NewRegistry()
	authorizer := broadcast.NewAuthorizer(cfg.Broadcast.AppKey)
	if err := server.RegisterChannels(authorizer); err != nil {
		slog.Error("Invalid channel rule", "error", err)
		os.Exit(1)
	}

	// Delivery driver and publish primitive
	driver, err := broadcast.NewDriver(cfg, redisClient.GetClient())
	if err != nil {
		slog.Error("Failed to create broadcast driver", "error", err)
		os.Exit(1)
	}
	publisher := broadcast.NewPublisher(driver)

	// Bus-to-registry bridge, one per process
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bridge := broadcast.NewBridge(redisClient.GetClient(), registry)
	bridge.Start(ctx)

	handler := broadcast.NewHandler(registry, authorizer, verifier, publisher)

	router := server.NewRouter(handler, verifier, cfg.Server.AllowedOrigins)
	router.SetupRoutes()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Stop the bridge and close remaining sockets
	cancel()
	registry.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
