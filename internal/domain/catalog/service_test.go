package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Product{}))
	return db
}

func TestGetProduct(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&Product{Name: "Submariner Date", Brand: "Rolex", Price: 1250000, Stock: 3}).Error)

	svc := NewService(db)
	p, err := svc.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Rolex", p.Brand)
	assert.Equal(t, int64(1250000), p.Price)
	assert.Equal(t, 3, p.Stock)
}

func TestGetProduct_NotFound(t *testing.T) {
	svc := NewService(setupDB(t))

	_, err := svc.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetProduct_ConcurrentCallersGetCopies(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&Product{Name: "Royal Oak", Brand: "Audemars Piguet", Price: 2800000, Stock: 1}).Error)
	svc := NewService(db)

	var wg sync.WaitGroup
	results := make([]*Product, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.GetProduct(context.Background(), 1)
			if err == nil {
				results[i] = p
			}
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		require.NotNil(t, p)
		assert.Equal(t, "Royal Oak", p.Name)
	}
	results[0].Name = "changed"
	assert.Equal(t, "Royal Oak", results[1].Name)
}

func TestGetProduct_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&Product{Name: "Calatrava", Brand: "Patek Philippe", Price: 3210000, Stock: 2}).Error)
	svc := NewService(db)

	// hold the first query open until the first caller has given up
	started := make(chan struct{})
	release := make(chan struct{})
	queryCtxErrs := make(chan error, 2)
	var once sync.Once
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:hold", func(d *gorm.DB) {
		once.Do(func() { close(started) })
		<-release
		queryCtxErrs <- d.Statement.Context.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.GetProduct(ctx, 1)
		first <- err
	}()
	<-started

	type result struct {
		p   *Product
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := svc.GetProduct(context.Background(), 1)
		second <- result{p, err}
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "Calatrava", res.p.Name)
	assert.NoError(t, <-queryCtxErrs, "the shared query outlives the cancelled caller")
}

func TestGetProduct_CancelledContext(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&Product{Name: "Calatrava", Brand: "Patek Philippe", Price: 3210000, Stock: 2}).Error)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewService(db).GetProduct(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListProducts(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&[]Product{
		{Name: "Speedmaster Professional", Brand: "Omega", Price: 680000, Stock: 2},
		{Name: "Calatrava", Brand: "Patek Philippe", Price: 3210000, Stock: 1},
	}).Error)

	products, err := NewService(db).ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Omega", products[0].Brand)
}
