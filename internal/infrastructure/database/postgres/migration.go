// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/domain/address"
	"github.com/your-org/watchstore-backend/internal/domain/cart"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/domain/inventory"
	"github.com/your-org/watchstore-backend/internal/domain/order"
	"gorm.io/gorm"
)

// demoUserID owns the seeded development address
const demoUserID = 1

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// models lists every table in dependency order
func models() []interface{} {
	return []interface{}{
		// Catalog and address book
		&catalog.Product{},
		&address.Address{},

		// Carts
		&cart.Cart{},
		&cart.Line{},

		// Orders; shipments first since orders point at them
		&order.Shipment{},
		&order.Order{},
		&order.Line{},
		&order.Payment{},

		// Inventory ledger and supplier purchases
		&inventory.Movement{},
		&inventory.Purchase{},
		&inventory.PurchaseLine{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("🔄 Running database auto-migrations...")

	for _, model := range models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for the hot read paths
func (m *Migration) CreateIndexes() error {
	m.logger.Info("🔄 Creating additional database indexes...")

	indexes := []string{
		// Carts
		"CREATE INDEX IF NOT EXISTS idx_carts_state_expires ON carts(state, expires_at)",

		// Orders
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_session_created ON orders(session_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_lines_product ON order_lines(product_id)",

		// Inventory
		"CREATE INDEX IF NOT EXISTS idx_inventory_movements_product_created ON inventory_movements(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_lines_product ON purchase_lines(product_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("⚠️ Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.Infof("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts the demo catalog and address book
func (m *Migration) SeedInitialData() error {
	m.logger.Info("🌱 Seeding initial data...")

	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if err := m.seedAddresses(); err != nil {
		return fmt.Errorf("failed to seed addresses: %w", err)
	}

	m.logger.Info("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	if err := m.db.Model(&catalog.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.logger.Info("⏭️ Products already exist")
		return nil
	}

	// Prices in cents
	watches := []catalog.Product{
		{Name: "Submariner Date", Brand: "Rolex", Price: 1250000, Stock: 3, ImageURL: "/images/rolex-submariner.jpg"},
		{Name: "Speedmaster Professional", Brand: "Omega", Price: 680000, Stock: 5, ImageURL: "/images/omega-speedmaster.jpg"},
		{Name: "Royal Oak", Brand: "Audemars Piguet", Price: 2800000, Stock: 1, ImageURL: "/images/ap-royal-oak.jpg"},
		{Name: "Datejust 36", Brand: "Rolex", Price: 890000, Stock: 4, ImageURL: "/images/rolex-datejust.jpg"},
		{Name: "Seamaster Planet Ocean", Brand: "Omega", Price: 520000, Stock: 6, ImageURL: "/images/omega-planet-ocean.jpg"},
		{Name: "Calatrava", Brand: "Patek Philippe", Price: 3210000, Stock: 2, ImageURL: "/images/patek-calatrava.jpg"},
	}

	if err := m.db.Create(&watches).Error; err != nil {
		return err
	}
	m.logger.Infof("✅ Created %d products", len(watches))
	return nil
}

func (m *Migration) seedAddresses() error {
	var existing address.Address
	err := m.db.Where("user_id = ?", demoUserID).First(&existing).Error
	if err == nil {
		m.logger.Info("⏭️ Demo address already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	demo := address.Address{
		UserID:     demoUserID,
		Recipient:  "Demo Shopper",
		Line1:      "1 Horology Lane",
		City:       "Geneva",
		PostalCode: "1204",
		Country:    "CH",
		Phone:      "+41 22 000 0000",
	}
	if err := m.db.Create(&demo).Error; err != nil {
		return err
	}
	m.logger.WithField("user_id", demoUserID).Info("✅ Created demo address")
	return nil
}

// GetTableInfo logs the row count of every managed table
func (m *Migration) GetTableInfo() error {
	m.logger.Info("📊 Database Tables Information:")

	totalRecords := int64(0)
	for _, model := range models() {
		if !m.db.Migrator().HasTable(model) {
			m.logger.Warnf("❌ Missing table for %T", model)
			continue
		}

		var count int64
		if err := m.db.Model(model).Count(&count).Error; err != nil {
			return err
		}
		totalRecords += count

		m.logger.WithField("records", count).Infof("%T", model)
	}

	m.logger.Infof("📈 Total records across all tables: %d", totalRecords)
	return nil
}
