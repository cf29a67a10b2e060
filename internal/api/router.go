// Package api wires together all HTTP routes for the directory service.
//
// Route groups:
//   - /api/organizations, /api/submissions and /api/categories serve the shared
//     directory. Write endpoints sit behind the rate limiter when it is enabled.
//   - /api/session/ routes carry a session cookie and read or mutate that
//     session's search/filter state.
//   - /health, /ready and /version are operational endpoints. Metrics are served
//     on a separate port by cmd/server, not through this router.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/philanthrohub/directory/internal/api/filters"
	"github.com/philanthrohub/directory/internal/api/organizations"
	"github.com/philanthrohub/directory/internal/config"
	"github.com/philanthrohub/directory/internal/directory"
	"github.com/philanthrohub/directory/internal/jobs"
	"github.com/philanthrohub/directory/internal/middleware"
	"github.com/philanthrohub/directory/internal/safego"
	"github.com/philanthrohub/directory/internal/session"
	"github.com/philanthrohub/directory/internal/storage"

	// Import storage backends to register them
	_ "github.com/philanthrohub/directory/internal/storage/azure"
	_ "github.com/philanthrohub/directory/internal/storage/gcs"
	_ "github.com/philanthrohub/directory/internal/storage/local"
	_ "github.com/philanthrohub/directory/internal/storage/s3"
)

// Version is the service version reported by /version and the CLI.
const Version = "0.1.0"

// readinessProbeKey is a known-absent object used to exercise the snapshot
// storage backend without creating any state.
const readinessProbeKey = ".readiness-probe"

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	publisher   *jobs.SnapshotPublisher
	stopLimiter func()
	cancel      context.CancelFunc
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.publisher != nil {
		bg.publisher.Stop()
	}
	if bg.stopLimiter != nil {
		bg.stopLimiter()
	}
	if bg.cancel != nil {
		bg.cancel()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router over store. It starts the
// snapshot publisher when snapshots are enabled.
func NewRouter(cfg *config.Config, store directory.Store) (*gin.Engine, *BackgroundServices, error) {
	svc := directory.NewService(store, cfg.Directory)
	registry := session.NewRegistry(cfg.Sessions.MaxEntries, cfg.Sessions.TTL)

	bgCtx, cancel := context.WithCancel(context.Background())
	bg := &BackgroundServices{cancel: cancel}

	var snapshotStorage storage.Storage
	if cfg.Snapshot.Enabled {
		st, err := storage.NewStorage(&cfg.Snapshot.Storage)
		if err != nil {
			bg.Shutdown()
			return nil, nil, fmt.Errorf("failed to initialize snapshot storage: %w", err)
		}
		snapshotStorage = st
		slog.Info("initialized snapshot storage", "backend", cfg.Snapshot.Storage.Backend)

		bg.publisher = jobs.NewSnapshotPublisher(svc, st, cfg.Snapshot.Key, cfg.Snapshot.Interval)
		publisher := bg.publisher
		safego.Go("snapshot-publisher", func() { publisher.Start(bgCtx) })
	}

	var writeLimit gin.HandlerFunc
	if cfg.Security.RateLimiting.Enabled {
		limiter, stop, err := middleware.NewLimiter(cfg.Security.RateLimiting)
		if err != nil {
			bg.Shutdown()
			return nil, nil, err
		}
		bg.stopLimiter = stop
		writeLimit = middleware.RateLimitMiddleware(limiter)
		slog.Info("rate limiting enabled",
			"backend", limiter.Backend(), "requests_per_minute", limiter.Limit())
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))

	router.GET("/health", healthCheckHandler(svc))
	router.GET("/ready", readinessHandler(svc, snapshotStorage))
	router.GET("/version", versionHandler())

	orgHandlers := organizations.NewHandlers(svc)
	filterHandlers := filters.NewHandlers(svc)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/organizations", orgHandlers.ListHandler())
		apiGroup.GET("/organizations/search", orgHandlers.SearchHandler())
		apiGroup.GET("/categories", orgHandlers.CategoriesHandler())

		writes := apiGroup.Group("")
		if writeLimit != nil {
			writes.Use(writeLimit)
		}
		writes.POST("/organizations", orgHandlers.CreateHandler())
		writes.POST("/submissions", orgHandlers.SubmitHandler())

		sessionGroup := apiGroup.Group("/session")
		sessionGroup.Use(middleware.SessionMiddleware(registry, cfg.Sessions, cfg.Security.TLS.Enabled))
		{
			sessionGroup.GET("/filters", filterHandlers.GetHandler())
			sessionGroup.PUT("/filters", filterHandlers.ReplaceHandler())
			sessionGroup.DELETE("/filters", filterHandlers.ResetHandler())
			sessionGroup.POST("/filters/toggle", filterHandlers.ToggleHandler())
			sessionGroup.GET("/results", filterHandlers.ResultsHandler())
		}
	}

	return router, bg, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthCheckHandler reports liveness by pinging the directory store.
func healthCheckHandler(store pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "directory store unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the snapshot storage
// backend when one is configured (snapshots may be nil).
func readinessHandler(store pinger, snapshots storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := store.Ping(c.Request.Context()); err != nil {
			checks["directory"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "directory store not ready",
			})
			return
		}
		checks["directory"] = "healthy"

		if snapshots != nil {
			if _, err := snapshots.Exists(c.Request.Context(), readinessProbeKey); err != nil {
				checks["storage"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "snapshot storage not ready",
				})
				return
			}
			checks["storage"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}
