// Package bootstrap connects the runtime dependencies shared by the server and tools.
package bootstrap

import (
	"context"
	"fmt"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedTaxonomy ensures the built-in categories and tags exist.
	SeedTaxonomy bool
	TaxonomyPath string
}

// InitRuntime connects to DB and Redis and optionally seeds the taxonomy.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedTaxonomy {
		if err := seedTaxonomy(db, opts.TaxonomyPath); err != nil {
			return nil, nil, fmt.Errorf("failed to seed taxonomy: %w", err)
		}
	}

	return db, r, nil
}

func seedTaxonomy(db *gorm.DB, path string) error {
	fx, err := seed.LoadTaxonomy(path)
	if err != nil {
		return err
	}
	if _, _, err := seed.EnsureTaxonomy(db, fx); err != nil {
		return err
	}
	cache.InvalidateTaxonomy(context.Background())
	return nil
}
