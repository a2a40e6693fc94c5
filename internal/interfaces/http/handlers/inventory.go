// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/domain/inventory"
	"github.com/your-org/watchstore-backend/internal/interfaces/http/middleware"
)

// InventoryHandler handles admin inventory endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	logger           *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// RecordPurchase handles POST /admin/inventory/purchases
func (h *InventoryHandler) RecordPurchase(c *gin.Context) {
	var req inventory.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	purchase, err := h.inventoryService.RecordPurchase(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Purchase recorded successfully",
		"data":    purchase,
	})
}

// GetPurchases handles GET /admin/inventory/purchases
func (h *InventoryHandler) GetPurchases(c *gin.Context) {
	purchases, err := h.inventoryService.Purchases(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": purchases,
	})
}

// GetMovements handles GET /admin/inventory/products/:id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	movements, err := h.inventoryService.Movements(c.Request.Context(), productID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": movements,
	})
}
