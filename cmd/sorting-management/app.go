package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/perysek/sorting-management/internal/config"
	"github.com/perysek/sorting-management/internal/database"
	"github.com/perysek/sorting-management/internal/reference"
	"github.com/perysek/sorting-management/internal/repository"
	"github.com/perysek/sorting-management/internal/service"
	"github.com/perysek/sorting-management/internal/store"
)

// app holds the wired components shared by the commands.
type app struct {
	localDB     *sql.DB
	dialect     database.Dialect
	refDB       *sql.DB
	redisClient *redis.Client

	reports    service.ReportsService
	enrichment service.EnrichmentService // nil when the reference store is disabled
	lookup     service.LookupService
	logger     *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{logger: logger}

	localDB, dialect, err := database.OpenLocal(ctx, &cfg.LocalDB)
	if err != nil {
		return nil, err
	}
	a.localDB = localDB
	a.dialect = dialect

	placeholders, err := database.PlaceholderStyleFor(cfg.Reference.Placeholder)
	if err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Reference.Enabled {
		refDB, err := database.OpenReference(&cfg.Reference)
		if err != nil {
			// The process still serves reports; lookups find nothing.
			logger.Warn("Reference store unavailable",
				zap.String("driver", cfg.Reference.Driver),
				zap.Strings("registered_drivers", sql.Drivers()),
				zap.Error(err),
			)
		} else {
			a.refDB = refDB
		}
	}
	client := reference.NewClient(a.refDB, reference.Config{
		Schema:       cfg.Reference.Schema,
		Placeholders: placeholders,
		QueryTimeout: cfg.Reference.QueryTimeout,
	}, logger.Named("reference"))
	syncEngine := reference.NewSyncEngine(client, logger.Named("sync"))

	var kv store.KV
	if cfg.Redis.Enabled {
		redisClient, err := store.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, lookup cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			a.redisClient = redisClient
			kv = store.NewRedisKV(redisClient)
		}
	}

	reportsRepo := repository.NewSQLReportsRepository(localDB, dialect, logger.Named("repository"))
	query := service.NewReportQueryService(reportsRepo, cfg.Query.PageSize, cfg.Query.DefaultPreset, time.Now, logger.Named("query"))
	if cfg.Reference.Enabled {
		a.enrichment = service.NewEnrichmentService(reportsRepo, syncEngine, logger.Named("enrichment"))
	}
	a.reports = service.NewReportsService(query, a.enrichment, logger)
	a.lookup = service.NewLookupService(syncEngine, client, kv, cfg.Redis.LookupTTL, logger.Named("lookup"))

	return a, nil
}

// ensureSchema creates missing tables and enrichment columns.
func (a *app) ensureSchema(ctx context.Context) error {
	added, err := database.EnsureSchema(ctx, a.localDB, a.dialect)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if len(added) > 0 {
		a.logger.Info("Added enrichment columns", zap.Strings("columns", added))
	}
	return nil
}

func (a *app) Close() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	_ = database.Close(a.refDB)
	_ = database.Close(a.localDB)
}
