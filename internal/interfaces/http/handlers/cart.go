// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/domain/cart"
	"github.com/your-org/watchstore-backend/internal/interfaces/http/middleware"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	logger      *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// QuantityRequest moves a cart line up or down by one
type QuantityRequest struct {
	Action string `json:"action" binding:"required,oneof=increase decrease"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	view, err := h.cartService.ViewCart(c.Request.Context(), middleware.OwnerFromContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    view,
	})
}

// AddItem handles POST /cart/items/:product_id
func (h *CartHandler) AddItem(c *gin.Context) {
	h.mutate(c, cart.OpAdd, "Item added to cart successfully")
}

// ChangeQuantity handles POST /cart/items/:product_id/quantity
func (h *CartHandler) ChangeQuantity(c *gin.Context) {
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	op := cart.OpIncrement
	if req.Action == "decrease" {
		op = cart.OpDecrement
	}
	h.mutate(c, op, "Cart item updated successfully")
}

// RemoveItem handles DELETE /cart/items/:product_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	h.mutate(c, cart.OpRemove, "Item removed from cart successfully")
}

// MergeCart handles POST /cart/merge, moving the guest session cart into the signed-in user's cart
func (h *CartHandler) MergeCart(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}
	ctx := c.Request.Context()

	merged, err := h.cartService.MergeGuestCart(ctx, middleware.GetSessionIDFromContext(c), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	view, err := h.cartService.ViewCart(ctx, middleware.OwnerFromContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Guest cart merged successfully",
		"merged_lines": merged,
		"data":         view,
	})
}

func (h *CartHandler) mutate(c *gin.Context, op cart.Operation, message string) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}

	view, err := h.cartService.MutateCart(c.Request.Context(), middleware.OwnerFromContext(c), productID, op)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    view,
	})
}
