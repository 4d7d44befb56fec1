package main

import (
	"log"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/gets-logistics/gets-engine/pkg/config"
	"github.com/gets-logistics/gets-engine/pkg/handlers"
	"github.com/gets-logistics/gets-engine/pkg/middleware"
	"github.com/gets-logistics/gets-engine/pkg/recordstore"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
	"github.com/gets-logistics/gets-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Schema lock: required installs fail hard, everything else runs
	// degraded with name-based field access.
	guard, err := schemalock.LoadFirst(cfg.SchemaLock.SearchPaths()...)
	if err != nil {
		if cfg.SchemaLock.Required {
			logger.Fatal("Schema lock required but not loadable", zap.Error(err))
		}
		logger.Warn("Schema lock not loaded, running degraded", zap.Error(err))
		guard = nil
	} else {
		logger.Info("Schema lock loaded",
			zap.String("version", guard.Version()),
			zap.String("base_id", guard.BaseID()),
			zap.Int("tables", len(guard.Tables())))
	}

	// The store interface stays nil unless a client is actually built;
	// the service treats nil as "dependency absent".
	var store services.RecordStore
	if cfg.Airtable.IsConfigured() {
		opts := []recordstore.Option{
			recordstore.WithLogger(logger),
			recordstore.WithHTTPClient(&http.Client{Timeout: cfg.Airtable.Timeout()}),
		}
		if cfg.Airtable.BaseURL != "" {
			opts = append(opts, recordstore.WithBaseURL(cfg.Airtable.BaseURL))
		}
		store = recordstore.NewClient(cfg.Airtable.Token, cfg.Airtable.BaseID, opts...)
		logger.Info("Record store client configured", zap.String("base_id", cfg.Airtable.BaseID))
	} else {
		logger.Warn("Record store not configured, dashboards answer empty")
	}

	statusService := services.NewStatusService(store, guard, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, guard, logger).RegisterRoutes(mux)
	handlers.NewStatusHandler(statusService, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(middleware.RequireBearer(cfg.APIKey)(mux))

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting gets-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	switch env {
	case "local", "development":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
