// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/config"
	"github.com/your-org/watchstore-backend/internal/domain/address"
	"github.com/your-org/watchstore-backend/internal/domain/cart"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/domain/checkout"
	"github.com/your-org/watchstore-backend/internal/domain/inventory"
	"github.com/your-org/watchstore-backend/internal/domain/order"
	"github.com/your-org/watchstore-backend/internal/interfaces/http/handlers"
	"github.com/your-org/watchstore-backend/internal/interfaces/http/middleware"
	"github.com/your-org/watchstore-backend/internal/pkg/clock"
	"gorm.io/gorm"
)

// Services is the wired domain layer behind the HTTP handlers
type Services struct {
	Products  *catalog.Service
	Addresses *address.Service
	Carts     *cart.Service
	Checkout  *checkout.Committer
	Orders    *order.Service
	Inventory *inventory.Service
}

// NewServices wires the domain services over the given stores
func NewServices(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, clk clock.Clock, logger *logrus.Logger) *Services {
	products := catalog.NewService(db)
	inv := inventory.NewService(db, logger)

	durable := cart.NewDurableProvider(db, products, clk, cfg, logger)
	ephemeral := cart.NewEphemeralProvider(redisClient, products, clk, cfg)
	carts := cart.NewService(durable, ephemeral, logger)

	addresses := address.NewService(db)
	committer := checkout.NewCommitter(db, carts, addresses, inv, order.NewRecorder(clk), cfg, logger)

	return &Services{
		Products:  products,
		Addresses: addresses,
		Carts:     carts,
		Checkout:  committer,
		Orders:    order.NewService(db, clk, cfg),
		Inventory: inv,
	}
}

// SetupRoutes registers every API v1 route
func SetupRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger) {
	SetupCatalogRoutes(rg, svc, logger)
	SetupCartRoutes(rg, svc, cfg, logger)
	SetupAccountRoutes(rg, svc, cfg, logger)
	SetupOrderRoutes(rg, svc, cfg, logger)
	SetupAdminRoutes(rg, svc, cfg, logger)
}

// SetupCatalogRoutes sets up public product routes
func SetupCatalogRoutes(rg *gin.RouterGroup, svc *Services, logger *logrus.Logger) {
	productHandler := handlers.NewProductHandler(svc.Products, logger)

	rg.GET("/products", productHandler.GetProducts)
}

// SetupAccountRoutes sets up the signed-in shopper's address book
func SetupAccountRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger) {
	addressHandler := handlers.NewAddressHandler(svc.Addresses, logger)

	addresses := rg.Group("/addresses")
	addresses.Use(middleware.AuthMiddleware(cfg))
	{
		addresses.GET("", addressHandler.GetAddresses)
	}
}

// SetupCartRoutes sets up cart routes; guests are tracked by the session cookie
func SetupCartRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger) {
	cartHandler := handlers.NewCartHandler(svc.Carts, logger)

	carts := rg.Group("/cart")
	carts.Use(middleware.OptionalAuthMiddleware(cfg), middleware.Session(cfg))
	{
		carts.GET("", cartHandler.GetCart)
		carts.POST("/items/:product_id", cartHandler.AddItem)
		carts.POST("/items/:product_id/quantity", cartHandler.ChangeQuantity)
		carts.DELETE("/items/:product_id", cartHandler.RemoveItem)

		carts.POST("/merge", middleware.AuthMiddleware(cfg), cartHandler.MergeCart)
	}
}

// SetupOrderRoutes sets up checkout and order routes
func SetupOrderRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger) {
	checkoutHandler := handlers.NewCheckoutHandler(svc.Checkout, logger)
	orderHandler := handlers.NewOrderHandler(svc.Orders, logger)

	// Checkout requires authentication; the address book is per user
	checkoutGroup := rg.Group("/checkout")
	checkoutGroup.Use(middleware.AuthMiddleware(cfg))
	{
		checkoutGroup.POST("", checkoutHandler.Checkout)
	}

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.GetOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/:id/return-eligibility", orderHandler.GetReturnEligibility)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger) {
	inventoryHandler := handlers.NewInventoryHandler(svc.Inventory, logger)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())
	{
		inv := admin.Group("/inventory")
		inv.GET("/purchases", inventoryHandler.GetPurchases)
		inv.POST("/purchases", inventoryHandler.RecordPurchase)
		inv.GET("/products/:id/movements", inventoryHandler.GetMovements)
	}
}
