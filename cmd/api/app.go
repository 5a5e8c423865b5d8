package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/GFB-Team3/backend/internal/blob"
	"github.com/GFB-Team3/backend/internal/cache"
	"github.com/GFB-Team3/backend/internal/config"
	"github.com/GFB-Team3/backend/internal/database"
	"github.com/GFB-Team3/backend/internal/events"
	"github.com/GFB-Team3/backend/internal/handlers"
	"github.com/GFB-Team3/backend/internal/middleware"
	"github.com/GFB-Team3/backend/internal/monitoring"
	"github.com/GFB-Team3/backend/internal/services"
	"github.com/GFB-Team3/backend/internal/store"
	"github.com/GFB-Team3/backend/internal/store/memory"
	"github.com/GFB-Team3/backend/internal/store/postgres"
)

const rateLimitCleanupInterval = time.Minute

// app owns every long-lived dependency of the HTTP server.
type app struct {
	handler http.Handler
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, log *logrus.Logger) (*app, error) {
	a := &app{}

	st, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.closers = append(a.closers, db.Close)
	}

	blobs, err := blob.NewLocalStore(cfg.Uploads.Path, cfg.Uploads.PublicPrefix)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("prepare uploads dir: %w", err)
	}

	pinOpts := []services.PinOption{services.WithLogger(log)}
	if cfg.Cache.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, pin cache disabled")
		} else {
			log.WithField("addr", cfg.Cache.RedisAddr).Info("Pin cache enabled")
			pinOpts = append(pinOpts, services.WithCache(cache.NewPinCache(client, cfg.Cache.TTL)))
			a.closers = append(a.closers, client.Close)
		}
	}
	if cfg.Events.NATSURL != "" {
		publisher, err := events.Connect(cfg.Events.NATSURL)
		if err != nil {
			log.WithError(err).Warn("NATS unavailable, domain events disabled")
		} else {
			log.WithField("url", cfg.Events.NATSURL).Info("Domain events enabled")
			pinOpts = append(pinOpts, services.WithEvents(publisher))
			a.closers = append(a.closers, publisher.Close)
		}
	}

	metrics := monitoring.NewMetrics()
	var sqlDB *sql.DB
	if db != nil {
		sqlDB = db.DB
	}

	h := handlers.New(handlers.Options{
		Users:              services.NewUserService(st),
		Pins:               services.NewPinService(st, blobs, pinOpts...),
		Store:              st,
		Monitoring:         monitoring.NewService(time.Now(), st, sqlDB, metrics, blobs.Dir()),
		Metrics:            metrics,
		UploadsDir:         blobs.Dir(),
		UploadsPrefix:      blobs.Prefix(),
		MaxUploadBytes:     cfg.Uploads.MaxSizeBytes,
		MaxParallelUploads: cfg.Uploads.MaxParallel,
		MonitoringKey:      cfg.Monitoring.APIKey,
		Log:                log,
	})

	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestIDMiddleware(log), metrics.Middleware())
	if cfg.RateLimit.RPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log)
		limiter.StartCleanup(ctx, rateLimitCleanupInterval)
		engine.Use(limiter.Middleware())
	}
	h.Register(engine)

	a.handler = cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(cfg.HTTP.CORSOrigin),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Monitoring-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})(engine)

	return a, nil
}

// openStore returns the configured store. db is nil for the memory driver.
func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (store.Store, *sqlx.DB, error) {
	if cfg.DB.Driver == config.StoreDriverMemory {
		log.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil, nil
	}

	db, err := database.Open(ctx, cfg.DB, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := database.MigrateUp(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("Database schema is up to date")
	}
	return postgres.New(db), db, nil
}

func splitOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Close releases dependencies in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
