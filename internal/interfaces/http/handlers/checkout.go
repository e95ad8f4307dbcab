// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/domain/cart"
	"github.com/your-org/beauty-store-backend/internal/domain/checkout"
	"gorm.io/gorm"
)

// CheckoutHandler prices carts and shipping from the catalogue
type CheckoutHandler struct {
	db       *gorm.DB
	pricer   *cart.Pricer
	shipping *checkout.ShippingPolicy
	log      *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(db *gorm.DB, pricer *cart.Pricer, shipping *checkout.ShippingPolicy, log *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{db: db, pricer: pricer, shipping: shipping, log: log}
}

// CartQuoteRequest is a cart as the storefront holds it
type CartQuoteRequest struct {
	CartItems []cart.Line `json:"cartItems" binding:"required,min=1,dive"`
}

// CartQuote is the server-priced cart with its shipping options
type CartQuote struct {
	Cart     *cart.Snapshot          `json:"cart"`
	Shipping *checkout.ShippingQuote `json:"shipping"`
}

// QuoteCart handles POST /checkout/quote
func (h *CheckoutHandler) QuoteCart(c *gin.Context) {
	var req CartQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	snap, err := h.pricer.Price(h.db.WithContext(c.Request.Context()), req.CartItems)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, "Cart priced successfully", &CartQuote{
		Cart:     snap,
		Shipping: h.shipping.Quote(snap.SubTotal),
	})
}
