package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"QueryKit/internal/builder"
	"QueryKit/internal/config"
	"QueryKit/internal/db"
	"QueryKit/internal/entity"
	"QueryKit/internal/logger"
	"QueryKit/internal/pagination"
	"QueryKit/internal/router"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)

	cfg := config.LoadConfig()
	ctx := context.Background()

	// PostgreSQL
	if err := db.InitPostgres(ctx, cfg.PostgresDSN); err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("postgres_connected", nil)

	if cfg.MigrationsDir != "" {
		if err := db.RunMigrations(cfg.MigrationsDir, cfg.PostgresDSN); err != nil {
			logger.Error("migrations_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		logger.Info("migrations_applied", nil)
	}

	// Redis backs the offset-mode count cache; the engine degrades to
	// uncached counts when it is unreachable.
	db.InitRedis(cfg.RedisAddr)
	if err := db.PingRedis(ctx); err != nil {
		logger.Warn("redis_unavailable", map[string]any{"error": err.Error()})
	}

	// Entity registry
	if err := entity.InitRegistry(cfg.EntitiesDir); err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("entities_initialized", map[string]any{"count": len(entity.Registry)})

	codec := pagination.NewCodec(cfg.Pagination.Secret)
	cache := &builder.CountCache{
		RDB: db.RDB,
		TTL: time.Duration(cfg.Pagination.CountCacheTTLSec) * time.Second,
	}

	services := make(map[string]*builder.Service, len(entity.Registry))
	for name, e := range entity.Registry {
		svc := builder.New(e, db.Pool, codec)
		svc.Cache = cache
		svc.BasePath = cfg.BasePath + "/" + name
		svc.DefaultPerPage = cfg.Pagination.DefaultPerPage
		services[name] = svc
	}

	router.InitRoutes(cfg, services)

	logger.Info("server_start", map[string]any{"port": cfg.Port})
	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
