package checkout

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/watchstore-backend/internal/config"
	"github.com/your-org/watchstore-backend/internal/domain/address"
	"github.com/your-org/watchstore-backend/internal/domain/cart"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/domain/inventory"
	"github.com/your-org/watchstore-backend/internal/domain/order"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"github.com/your-org/watchstore-backend/internal/pkg/clock"
	pkglogger "github.com/your-org/watchstore-backend/internal/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	productX uint = 1
	productY uint = 2
)

type fixture struct {
	db        *gorm.DB
	carts     *cart.Service
	committer *Committer
	orders    *order.Service
	clock     *clock.Manual
}

// anyAddress resolves every address id for every owner
type anyAddress struct{}

func (anyAddress) GetAddress(_ context.Context, id uint, _ shopper.Owner) (*address.Address, error) {
	return &address.Address{ID: id, Recipient: "Guest", Line1: "1 Rue du Rhône", City: "Genève", Country: "CH"}, nil
}

func setup(t *testing.T, book address.Book) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "checkout.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return newFixture(t, db, book)
}

// models lists the tables checkout touches, parents first
func models() []interface{} {
	return []interface{}{
		&catalog.Product{},
		&address.Address{},
		&cart.Cart{}, &cart.Line{},
		&order.Shipment{}, &order.Order{}, &order.Line{}, &order.Payment{},
		&inventory.Movement{},
	}
}

func newFixture(t *testing.T, db *gorm.DB, book address.Book) *fixture {
	t.Helper()

	require.NoError(t, db.AutoMigrate(models()...))
	require.NoError(t, db.Create(&[]catalog.Product{
		{ID: productX, Name: "Submariner Date", Brand: "Rolex", Price: 100, Stock: 5},
		{ID: productY, Name: "Speedmaster Professional", Brand: "Omega", Price: 50, Stock: 5},
	}).Error)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		Cart:     config.CartConfig{TTL: time.Hour, SessionTTL: 24 * time.Hour, SessionCookie: "session_id"},
		Checkout: config.CheckoutConfig{PaymentMethods: []string{"credit_card", "paypal"}},
		Order:    config.OrderConfig{ReturnWindow: 90 * 24 * time.Hour},
	}
	clk := clock.NewManual(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	log := pkglogger.Discard()
	products := catalog.NewService(db)

	carts := cart.NewService(
		cart.NewDurableProvider(db, products, clk, cfg, log),
		cart.NewEphemeralProvider(rdb, products, clk, cfg),
		log,
	)
	if book == nil {
		book = address.NewService(db)
	}

	return &fixture{
		db:        db,
		carts:     carts,
		committer: NewCommitter(db, carts, book, inventory.NewService(db, log), order.NewRecorder(clk), cfg, log),
		orders:    order.NewService(db, clk, cfg),
		clock:     clk,
	}
}

func (f *fixture) addressFor(t *testing.T, userID uint) uint {
	t.Helper()
	addr := address.Address{UserID: userID, Recipient: "Ana Ruiz", Line1: "Av. Reforma 100", City: "CDMX", Country: "MX"}
	require.NoError(t, f.db.Create(&addr).Error)
	return addr.ID
}

func (f *fixture) fill(t *testing.T, owner shopper.Owner, lines map[uint]int) {
	t.Helper()
	for productID, qty := range lines {
		for i := 0; i < qty; i++ {
			_, err := f.carts.MutateCart(context.Background(), owner, productID, cart.OpAdd)
			require.NoError(t, err)
		}
	}
}

func (f *fixture) setStock(t *testing.T, productID uint, stock int) {
	t.Helper()
	require.NoError(t, f.db.Model(&catalog.Product{}).Where("id = ?", productID).Update("stock", stock).Error)
}

func (f *fixture) stock(t *testing.T, productID uint) int {
	t.Helper()
	var p catalog.Product
	require.NoError(t, f.db.First(&p, productID).Error)
	return p.Stock
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&order.Order{}).Count(&n).Error)
	return n
}

func TestCheckout_Succeeds(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	owner := shopper.User(1)
	addrID := f.addressFor(t, 1)
	f.fill(t, owner, map[uint]int{productX: 2, productY: 1})

	active, err := f.carts.ViewCart(ctx, owner)
	require.NoError(t, err)

	orderID, err := f.committer.Checkout(ctx, owner, &Request{AddressID: addrID, PaymentMethod: "credit_card"})
	require.NoError(t, err)

	o, err := f.orders.GetOrder(ctx, orderID, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(250), o.Total)
	assert.Equal(t, o.Subtotal, o.Total)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.Equal(t, int64(100), o.Lines[0].UnitPrice)
	assert.Equal(t, order.PaymentStatusApproved, o.Payment.Status)
	assert.Equal(t, int64(250), o.Payment.Amount)
	assert.Equal(t, "CDMX", o.Shipment.City)
	require.NotNil(t, o.CartID)
	assert.Equal(t, active.CartID, *o.CartID)

	assert.Equal(t, 3, f.stock(t, productX))
	assert.Equal(t, 4, f.stock(t, productY))

	var stored cart.Cart
	require.NoError(t, f.db.First(&stored, active.CartID).Error)
	assert.Equal(t, cart.StateConverted, stored.State)

	var movements int64
	require.NoError(t, f.db.Model(&inventory.Movement{}).Where("reference_id = ? AND reference_type = ?", orderID, "order").Count(&movements).Error)
	assert.Equal(t, int64(2), movements)

	// the next visit sees a fresh, empty cart
	next, err := f.carts.ViewCart(ctx, owner)
	require.NoError(t, err)
	assert.NotEqual(t, active.CartID, next.CartID)
	assert.Empty(t, next.Items)
}

func TestCheckout_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	owner := shopper.User(1)
	addrID := f.addressFor(t, 1)
	f.fill(t, owner, map[uint]int{productX: 2, productY: 1})
	f.setStock(t, productY, 0)

	_, err := f.committer.Checkout(ctx, owner, &Request{AddressID: addrID, PaymentMethod: "credit_card"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, productY, stockErr.ProductID)
	assert.Equal(t, 0, stockErr.Available)
	assert.Equal(t, 1, stockErr.Requested)

	assert.Equal(t, 5, f.stock(t, productX))
	assert.Zero(t, f.countOrders(t))

	view, err := f.carts.ViewCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, cart.StateActive, view.State)
	assert.Len(t, view.Items, 2)
}

func TestCheckout_DoubleSubmit(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	owner := shopper.User(1)
	addrID := f.addressFor(t, 1)
	f.fill(t, owner, map[uint]int{productX: 1})

	req := &Request{AddressID: addrID, PaymentMethod: "paypal"}
	_, err := f.committer.Checkout(ctx, owner, req)
	require.NoError(t, err)

	_, err = f.committer.Checkout(ctx, owner, req)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, int64(1), f.countOrders(t))
	assert.Equal(t, 4, f.stock(t, productX))
}

func TestCheckout_PreconditionOrder(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	owner := shopper.User(1)
	addrID := f.addressFor(t, 1)
	otherAddr := f.addressFor(t, 2)

	// empty cart wins over missing inputs
	_, err := f.committer.Checkout(ctx, owner, &Request{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.fill(t, owner, map[uint]int{productX: 1})

	tests := []struct {
		name  string
		req   *Request
		field string
	}{
		{"no request", nil, "address_id"},
		{"no address", &Request{PaymentMethod: "paypal"}, "address_id"},
		{"no payment method", &Request{AddressID: addrID, PaymentMethod: "  "}, "payment_method"},
		{"unsupported method", &Request{AddressID: addrID, PaymentMethod: "bitcoin"}, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.committer.Checkout(ctx, owner, tt.req)
			require.ErrorIs(t, err, ErrMissingCheckoutInput)

			var inputErr *MissingCheckoutInputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}

	_, err = f.committer.Checkout(ctx, owner, &Request{AddressID: otherAddr, PaymentMethod: "paypal"})
	assert.ErrorIs(t, err, shopper.ErrNotFoundOrForbidden)

	assert.Zero(t, f.countOrders(t))
	assert.Equal(t, 5, f.stock(t, productX))
}

func TestCheckout_ExpiredCartIsEmpty(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	owner := shopper.User(1)
	addrID := f.addressFor(t, 1)
	f.fill(t, owner, map[uint]int{productX: 1})

	f.clock.Advance(time.Hour + time.Second)

	_, err := f.committer.Checkout(ctx, owner, &Request{AddressID: addrID, PaymentMethod: "paypal"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_ProductRemovedFromCatalog(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	owner := shopper.User(1)
	addrID := f.addressFor(t, 1)
	f.fill(t, owner, map[uint]int{productX: 1, productY: 1})

	require.NoError(t, f.db.Delete(&catalog.Product{}, productY).Error)

	_, err := f.committer.Checkout(ctx, owner, &Request{AddressID: addrID, PaymentMethod: "paypal"})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	assert.Equal(t, 5, f.stock(t, productX))
	assert.Zero(t, f.countOrders(t))
}

// TestCheckout_LastUnitRace checks the outcome of many buyers chasing one unit.
// sqlite runs on a single connection here, so the checkouts are serialized and
// the row locks never contend; committer_postgres_test.go runs the same race
// against Postgres.
func TestCheckout_LastUnitRace(t *testing.T) {
	lastUnitRace(t, setup(t, nil))
}

func lastUnitRace(t *testing.T, f *fixture) {
	t.Helper()

	ctx := context.Background()
	f.setStock(t, productX, 1)

	const n = 8
	reqs := make([]*Request, n)
	for i := 0; i < n; i++ {
		userID := uint(100 + i)
		f.fill(t, shopper.User(userID), map[uint]int{productX: 1})
		reqs[i] = &Request{AddressID: f.addressFor(t, userID), PaymentMethod: "credit_card"}
	}

	var succeeded, outOfStock atomic.Int32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		owner := shopper.User(uint(100 + i))
		req := reqs[i]
		g.Go(func() error {
			_, err := f.committer.Checkout(ctx, owner, req)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrInsufficientStock):
				outOfStock.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(n-1), outOfStock.Load())
	assert.Equal(t, 0, f.stock(t, productX))
	assert.Equal(t, int64(1), f.countOrders(t))
}

func TestCheckout_SessionCart(t *testing.T) {
	f := setup(t, anyAddress{})
	ctx := context.Background()
	guest := shopper.Anonymous("sess-a")
	f.fill(t, guest, map[uint]int{productX: 1, productY: 2})

	orderID, err := f.committer.Checkout(ctx, guest, &Request{AddressID: 1, PaymentMethod: "paypal"})
	require.NoError(t, err)

	o, err := f.orders.GetOrder(ctx, orderID, guest)
	require.NoError(t, err)
	assert.Nil(t, o.UserID)
	assert.Nil(t, o.CartID)
	assert.Equal(t, int64(200), o.Total)

	_, err = f.orders.GetOrder(ctx, orderID, shopper.Anonymous("sess-b"))
	assert.ErrorIs(t, err, shopper.ErrNotFoundOrForbidden)

	view, err := f.carts.ViewCart(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = f.committer.Checkout(ctx, guest, &Request{AddressID: 1, PaymentMethod: "paypal"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_SessionCartRestoredOnFailure(t *testing.T) {
	f := setup(t, anyAddress{})
	ctx := context.Background()
	guest := shopper.Anonymous("sess-a")
	f.fill(t, guest, map[uint]int{productX: 1, productY: 1})
	f.setStock(t, productY, 0)

	_, err := f.committer.Checkout(ctx, guest, &Request{AddressID: 1, PaymentMethod: "paypal"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	view, err := f.carts.ViewCart(ctx, guest)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, int64(150), view.TotalPrice)
}

func TestCheckout_SessionCartRestoredAfterDeadline(t *testing.T) {
	f := setup(t, anyAddress{})
	guest := shopper.Anonymous("sess-a")
	f.fill(t, guest, map[uint]int{productX: 1, productY: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:deadline", func(d *gorm.DB) {
		if _, ok := d.Statement.Dest.(*order.Shipment); ok {
			cancel()
			d.AddError(context.Canceled)
		}
	}))

	_, err := f.committer.Checkout(ctx, guest, &Request{AddressID: 1, PaymentMethod: "paypal"})
	require.ErrorIs(t, err, context.Canceled)

	view, err := f.carts.ViewCart(context.Background(), guest)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Zero(t, f.countOrders(t))
}

func TestCheckout_NoOwner(t *testing.T) {
	f := setup(t, nil)

	_, err := f.committer.Checkout(context.Background(), shopper.Owner{}, &Request{AddressID: 1, PaymentMethod: "paypal"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}
