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

	"vendordesk/internal/client/nominatim"
	"vendordesk/internal/client/vendorapi"
	"vendordesk/internal/config"
	"vendordesk/internal/db"
	"vendordesk/internal/geocode"
	"vendordesk/internal/httpserver"
	"vendordesk/internal/migrate"
	"vendordesk/internal/preview"
	"vendordesk/internal/repository/storage"
	"vendordesk/internal/service/profile"
	"vendordesk/internal/session"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	storageRepo := storage.NewPostgres(dbpool, logger)
	vendorAPI := vendorapi.New(cfg.APIBaseURL, cfg.RequestTimeout, logger)

	var geocoder geocode.Provider = nominatim.New(cfg.GeocodeBaseURL, cfg.GeocodeUserAgent, cfg.RequestTimeout, cfg.GeocodeRatePerSec, logger)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Printf("redis ping addr=%s error=%v", cfg.RedisAddr, err)
		}
		cancel()
		geocoder = geocode.NewCache(geocoder, rdb, cfg.GeocodeCacheTTL, logger)
	}

	previews := preview.NewStore(preview.DefaultMaxDimension, cfg.PreviewMaxPixels)
	sessions := session.NewManager(session.Deps{
		Storage:  storageRepo,
		TokenKey: cfg.TokenKey,
		API:      vendorAPI,
		Geocoder: geocoder,
		Previews: previews,
		Options: profile.Options{
			GeolocationTimeout: cfg.GeolocationTimeout,
			CountryCode:        cfg.GeocodeCountryCode,
		},
		IdleTTL: cfg.SessionIdleTTL,
	}, logger)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx, cfg.SessionSweepInterval)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions:    sessions,
		Previews:    previews,
		MapsBaseURL: cfg.MapsBaseURL,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
