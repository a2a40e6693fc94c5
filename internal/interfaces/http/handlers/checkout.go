// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/domain/checkout"
	"github.com/your-org/watchstore-backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	committer *checkout.Committer
	logger    *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(committer *checkout.Committer, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		committer: committer,
		logger:    logger,
	}
}

// Checkout handles POST /checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	orderID, err := h.committer.Checkout(c.Request.Context(), middleware.OwnerFromContext(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Order placed successfully",
		"order_id": orderID,
	})
}
