package cart

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/your-org/watchstore-backend/internal/config"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/pkg/clock"
	pkglogger "github.com/your-org/watchstore-backend/internal/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Cart: config.CartConfig{
			TTL:           60 * time.Minute,
			SessionTTL:    24 * time.Hour,
			SessionCookie: "session_id",
		},
	}
}

// setupDB opens a sqlite database in a temp dir with the cart tables and two watches:
// product 1 priced 10000 and product 2 priced 5000.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cart.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&catalog.Product{}, &Cart{}, &Line{}))
	require.NoError(t, db.Create(&[]catalog.Product{
		{ID: 1, Name: "Submariner Date", Brand: "Rolex", Price: 10000, Stock: 5},
		{ID: 2, Name: "Speedmaster Professional", Brand: "Omega", Price: 5000, Stock: 5},
	}).Error)
	return db
}

func setupDurable(t *testing.T) (*DurableProvider, *gorm.DB, *clock.Manual) {
	t.Helper()

	db := setupDB(t)
	clk := clock.NewManual(testStart)
	return NewDurableProvider(db, catalog.NewService(db), clk, testConfig(), pkglogger.Discard()), db, clk
}

func setupEphemeral(t *testing.T) (*EphemeralProvider, *miniredis.Miniredis, *gorm.DB) {
	t.Helper()

	db := setupDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewEphemeralProvider(client, catalog.NewService(db), clock.NewManual(testStart), testConfig()), mr, db
}

func lineFor(c *Cart, productID uint) *Line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}
