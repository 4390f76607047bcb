package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arclight-labs/session-core/internal/adapters/driven/auth"
	"github.com/arclight-labs/session-core/internal/adapters/driven/postgres"
	redisadapter "github.com/arclight-labs/session-core/internal/adapters/driven/redis"
	httpserver "github.com/arclight-labs/session-core/internal/adapters/driving/http"
	"github.com/arclight-labs/session-core/internal/core/ports/driven"
	"github.com/arclight-labs/session-core/internal/core/services"
	"github.com/arclight-labs/session-core/internal/worker"
)

var version = "dev"

func main() {
	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "")
	databaseURL := getEnv("DATABASE_URL", "")
	jwtSecret := getEnv("JWT_SECRET", "development-secret-change-in-production")
	port := getEnvInt("PORT", 8080)
	sessionTTL := time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour
	softTimeout := time.Duration(getEnvInt("SESSION_SOFT_TIMEOUT_HOURS", 24)) * time.Hour

	log.Printf("session-core %s starting", version)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Session store (Redis cluster if configured, otherwise PostgreSQL) =====
	var (
		sessionStore driven.SessionStore
		sessionLock  driven.DistributedLock
	)

	switch {
	case redisURL != "":
		client, err := redisadapter.NewClient(redisadapter.Config{URL: redisURL})
		if err != nil {
			log.Fatalf("Failed to configure Redis: %v", err)
		}
		// Connection is lazy; surface misconfiguration now rather than
		// on the first login.
		if err := client.Ping(ctx); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Quit()

		sessionStore = redisadapter.NewSessionStore(client, sessionTTL)
		sessionLock = redisadapter.NewLock(client)
		log.Println("Using Redis session store")

	case databaseURL != "":
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(databaseURL))
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}

		pgStore := postgres.NewSessionStore(db, sessionTTL)
		sessionStore = pgStore
		sessionLock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL session store")

		// Rows carry their expiry but don't delete themselves; sweep
		// them in the background.
		reaper := worker.NewReaper(worker.ReaperConfig{
			Purger:   pgStore,
			Lock:     sessionLock,
			Interval: time.Duration(getEnvInt("REAPER_INTERVAL_MINUTES", 60)) * time.Minute,
		})
		if err := reaper.Start(ctx); err != nil {
			log.Fatalf("Failed to start session reaper: %v", err)
		}
		defer reaper.Stop()

	default:
		log.Fatal("Set REDIS_URL or DATABASE_URL")
	}

	// ===== Core =====
	authority := services.NewSessionAuthority(services.SessionAuthorityConfig{
		Store:       sessionStore,
		Lock:        sessionLock,
		Logger:      slog.Default(),
		TTL:         sessionTTL,
		SoftTimeout: softTimeout,
	})
	tokenCodec := auth.NewAdapter(jwtSecret, sessionTTL)
	authMiddleware := httpserver.NewAuthMiddleware(tokenCodec, authority)

	// ===== Operational HTTP surface =====
	server := httpserver.NewServer(httpserver.Config{
		Host:    "0.0.0.0",
		Port:    port,
		Version: version,
	}, sessionStore, authMiddleware)

	log.Printf("Operational server starting on :%d", port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
