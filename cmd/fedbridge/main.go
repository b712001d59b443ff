package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/fedbridge/fedbridge/pkg/config"
	"github.com/fedbridge/fedbridge/pkg/connection"
	"github.com/fedbridge/fedbridge/pkg/httputil"
	"github.com/fedbridge/fedbridge/pkg/observability"
	"github.com/fedbridge/fedbridge/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	st, err := buildStore(cfg)
	if err != nil {
		logrus.Fatalf("failed to initialize store: %v", err)
	}
	logrus.Infof("store initialized (type=%s)", cfg.Store.Type)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	var janitor *store.Janitor
	if cfg.Store.JanitorSchedule != "" {
		opts := []store.JanitorOption{}
		if metrics != nil {
			opts = append(opts, store.WithSweepCallback(metrics.ObserveJanitorSweep))
		}
		janitor = store.NewJanitor(st, cfg.Store.JanitorSchedule, opts...)
		if err := janitor.Start(); err != nil {
			logrus.Fatalf("failed to start janitor: %v", err)
		}
		logrus.Infof("janitor started (schedule=%q)", cfg.Store.JanitorSchedule)
	}

	ctrl := connection.NewController(st, connection.Options{
		Logger:                logger,
		Metrics:               metrics,
		CertCommonName:        cfg.Connection.CertCommonName,
		ValidateOIDCDiscovery: cfg.Connection.ValidateOIDCDiscovery,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Connection.ManifestDir != "" {
		if cfg.Connection.WatchManifests {
			go func() {
				if err := ctrl.WatchManifestDir(ctx, cfg.Connection.ManifestDir); err != nil && ctx.Err() == nil {
					logger.WithError(err).Error("manifest watcher stopped")
				}
			}()
		} else {
			manifest, err := connection.LoadManifestDir(cfg.Connection.ManifestDir)
			if err != nil {
				logrus.Fatalf("failed to load connection manifests: %v", err)
			}
			if err := ctrl.PreLoadConnections(ctx, manifest); err != nil {
				logrus.Fatalf("failed to preload connections: %v", err)
			}
			logrus.Infof("preloaded %d connections from %s", len(manifest), cfg.Connection.ManifestDir)
		}
	}

	health := observability.NewHealthChecker()
	health.Register("store", func(ctx context.Context) error {
		_, err := st.Get(ctx, "healthcheck")
		if err != nil && err != store.ErrNotFound {
			return err
		}
		return nil
	})

	router := mux.NewRouter()
	router.Use(httputil.RequestIDMiddleware)
	router.Use(httputil.RecoveryMiddleware(logger))
	router.Use(httputil.LoggingMiddleware(logger))
	if metrics != nil {
		router.Use(metrics.HTTPMiddleware)
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	router.HandleFunc("/healthz", health.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", health.Readiness).Methods(http.MethodGet)

	connection.NewHandlers(ctrl).RegisterRoutes(router)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		if janitor != nil {
			janitor.Stop()
		}
		return st.Close()
	})

	go func() {
		logrus.Infof("fedbridge listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logrus.Fatalf("shutdown failed: %v", err)
	}
	logrus.Info("shutdown complete")
}

// buildStore constructs the configured backend, optionally wrapped in the
// LRU read cache.
func buildStore(cfg *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch cfg.Store.Type {
	case "memory":
		st = store.NewMemoryStore()
	case "redis":
		opts, parseErr := redis.ParseURL(cfg.Store.RedisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis URL: %w", parseErr)
		}
		st = store.NewRedisStore(redis.NewClient(opts), cfg.Store.RedisNamespace)
	case "postgres":
		st, err = openSQLStore("postgres", cfg.Store.PostgresURL)
	case "sqlite":
		st, err = openSQLStore("sqlite3", cfg.Store.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Store.CacheSize > 0 {
		return store.NewCachedStore(st, cfg.Store.CacheSize)
	}
	return st, nil
}

func openSQLStore(driver, dsn string) (store.Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	st := store.NewSQLStore(db)
	if err := st.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate %s database: %w", driver, err)
	}
	return st, nil
}
