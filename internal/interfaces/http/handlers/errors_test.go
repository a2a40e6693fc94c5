package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/watchstore-backend/internal/domain/cart"
	"github.com/your-org/watchstore-backend/internal/domain/catalog"
	"github.com/your-org/watchstore-backend/internal/domain/checkout"
	"github.com/your-org/watchstore-backend/internal/domain/inventory"
	"github.com/your-org/watchstore-backend/internal/domain/shopper"
	"github.com/your-org/watchstore-backend/internal/pkg/logger"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		field  string
		value  any
	}{
		{"empty cart", cart.ErrEmptyCart, http.StatusConflict, "", nil},
		{"missing address", &checkout.MissingCheckoutInputError{Field: "address_id"}, http.StatusBadRequest, "field", "address_id"},
		{"insufficient stock", fmt.Errorf("commit: %w", &inventory.InsufficientStockError{ProductID: 3, Available: 1, Requested: 2}),
			http.StatusConflict, "available", float64(1)},
		{"unknown product", fmt.Errorf("lock: %w", catalog.ErrProductNotFound), http.StatusNotFound, "", nil},
		{"foreign order", shopper.ErrNotFoundOrForbidden, http.StatusNotFound, "", nil},
		{"invalid quantity", cart.ErrInvalidQuantity, http.StatusBadRequest, "", nil},
		{"empty purchase", inventory.ErrEmptyPurchase, http.StatusBadRequest, "", nil},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "", nil},
		{"anything else", errors.New("disk on fire"), http.StatusInternalServerError, "error", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, logger.Discard(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			if tt.field != "" {
				var body map[string]any
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.value, body[tt.field])
			}
		})
	}
}
