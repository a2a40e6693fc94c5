// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/domain/cart"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/domain/checkout"
	"github.com/your-org/watchstore-backend/internal/domain/inventory"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"github.com/your-org/watchstore-backend/internal/interfaces/http/middleware"
)

// respondError maps domain errors onto HTTP responses
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var stockErr *inventory.InsufficientStockError
	var inputErr *checkout.MissingCheckoutInputError

	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "Insufficient stock",
			"product_id": stockErr.ProductID,
			"name":       stockErr.Name,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": inputErr.Error(),
			"field": inputErr.Field,
		})
	case errors.Is(err, cart.ErrEmptyCart):
		c.JSON(http.StatusConflict, gin.H{"error": "Cart is empty"})
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrUnknownOperation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cart.ErrNoOwner):
		c.JSON(http.StatusBadRequest, gin.H{"error": "A session or sign-in is required"})
	case errors.Is(err, cart.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": "Cart was modified concurrently, please retry"})
	case errors.Is(err, catalog.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, shopper.ErrNotFoundOrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, inventory.ErrEmptyPurchase):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timeout"})
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.ContextRequestID),
			"path":       c.FullPath(),
		}).Error("Request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}
