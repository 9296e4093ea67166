// Package bootstrap wires up runtime dependencies for the server process.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gatekeeper/internal/cache"
	"gatekeeper/internal/config"
	"gatekeeper/internal/database"
	"gatekeeper/internal/models"
	"gatekeeper/internal/observability"
	"gatekeeper/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemoData bool
}

// InitRuntime connects to DB and Redis, starts tracing if enabled, and
// optionally seeds demo data in development.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if cfg.TracingEnabled {
		if _, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "gatekeeper-api",
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        true,
			Exporter:       cfg.TracingExport,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TracingRatio,
		}); err != nil {
			return nil, nil, fmt.Errorf("tracing init failed: %w", err)
		}
	}

	if opts.SeedDemoData {
		if !strings.EqualFold(cfg.Env, "development") {
			return nil, nil, errors.New("demo seeding is restricted to the development environment")
		}
		if err := seedIfEmpty(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// seedIfEmpty runs the demo seeder only against a virgin database, so a
// restart never duplicates the campus roster.
func seedIfEmpty(db *gorm.DB) error {
	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		log.Println("Database already populated, skipping demo seed")
		return nil
	}
	return seed.Run(db, seed.Options{})
}
