package bootstrap

import (
	"path/filepath"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRuntime_SQLiteWithTaxonomy(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "inkwell.db"),
		RedisURL:   mr.Addr(),
	}

	db, rdb, err := InitRuntime(cfg, Options{SeedTaxonomy: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		cache.SetClient(nil)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NotNil(t, rdb)

	var categories int64
	require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
	assert.Positive(t, categories)

	// A second start must not duplicate the taxonomy.
	require.NoError(t, seedTaxonomy(db, ""))
	var again int64
	require.NoError(t, db.Model(&models.Category{}).Count(&again).Error)
	assert.Equal(t, categories, again)
}

func TestInitRuntime_MissingFixture(t *testing.T) {
	cfg := &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "inkwell.db"),
		RedisURL:   "127.0.0.1:1",
	}
	t.Cleanup(func() { cache.SetClient(nil) })

	_, _, err := InitRuntime(cfg, Options{SeedTaxonomy: true, TaxonomyPath: "missing.yml"})
	assert.ErrorContains(t, err, "taxonomy")
}
