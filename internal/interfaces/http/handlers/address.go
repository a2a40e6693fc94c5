// internal/interfaces/http/handlers/address.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/watchstore-backend/internal/domain/address"
	"github.com/your-org/watchstore-backend/internal/interfaces/http/middleware"
)

// AddressHandler exposes the caller's address book so checkout has an address_id to send
type AddressHandler struct {
	addressService *address.Service
	logger         *logrus.Logger
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addressService *address.Service, logger *logrus.Logger) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
		logger:         logger,
	}
}

// GetAddresses handles GET /addresses
func (h *AddressHandler) GetAddresses(c *gin.Context) {
	addresses, err := h.addressService.ListAddresses(c.Request.Context(), middleware.OwnerFromContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": addresses,
	})
}
