package main

import (
	"context"
	"log"
	"os"

	"vendordesk/internal/config"
	"vendordesk/internal/db"
	"vendordesk/internal/migrate"
	"vendordesk/internal/repository/storage"
	"vendordesk/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	token := os.Getenv("SEED_VENDOR_TOKEN")
	if token == "" {
		logger.Fatalf("SEED_VENDOR_TOKEN is required")
	}
	sessionID := os.Getenv("SEED_SESSION_ID")
	if sessionID == "" {
		sessionID = seed.DevSessionID
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	repo := storage.NewPostgres(pool, logger)
	if err := seed.Apply(ctx, repo, cfg.TokenKey, []seed.Token{{SessionID: sessionID, Value: token}}); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied session_id=%s", sessionID)
}
