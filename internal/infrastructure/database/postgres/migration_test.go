package postgres

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/watchstore-backend/internal/domain/address"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "migration.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func TestMigration_RunAndSeed(t *testing.T) {
	db := setupDB(t)
	m := NewMigration(db, logger.Discard())

	require.NoError(t, m.RunAutoMigrations())
	require.NoError(t, m.CreateIndexes())

	for _, model := range models() {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}

	require.NoError(t, m.SeedInitialData())
	// second run must not duplicate anything
	require.NoError(t, m.SeedInitialData())

	var products int64
	require.NoError(t, db.Model(&catalog.Product{}).Count(&products).Error)
	assert.EqualValues(t, 6, products)

	var addresses int64
	require.NoError(t, db.Model(&address.Address{}).Where("user_id = ?", demoUserID).Count(&addresses).Error)
	assert.EqualValues(t, 1, addresses)

	assert.NoError(t, m.GetTableInfo())
}
