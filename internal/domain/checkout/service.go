// internal/domain/checkout/service.go
package checkout

import "github.com/your-org/beauty-store-backend/internal/config"

// ShippingMethod represents a shipping option
type ShippingMethod struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Price         int64  `json:"price"` // paise
	EstimatedDays string `json:"estimated_days"`
	Carrier       string `json:"carrier"`
}

// ShippingQuote is the result of pricing shipping for a subtotal.
type ShippingQuote struct {
	SubTotal          int64            `json:"sub_total"`
	StandardFee       int64            `json:"standard_fee"`
	FreeShipping      bool             `json:"free_shipping"`
	AmountToFreeShip  int64            `json:"amount_to_free_shipping"`
	FreeShippingAbove int64            `json:"free_shipping_threshold"`
	AvailableMethods  []ShippingMethod `json:"methods"`
}

// ShippingPolicy is the single source of the store's shipping-fee rule.
// Checkout quotes and the free_shipping welcome gift both read from it.
type ShippingPolicy struct {
	standardFee   int64
	freeThreshold int64
}

// NewShippingPolicy builds the policy from config
func NewShippingPolicy(cfg *config.Config) *ShippingPolicy {
	return &ShippingPolicy{
		standardFee:   cfg.Shipping.StandardFee,
		freeThreshold: cfg.Shipping.FreeShippingThreshold,
	}
}

// Fee returns the standard shipping fee charged for subTotal.
func (p *ShippingPolicy) Fee(subTotal int64) int64 {
	if p.QualifiesForFreeShipping(subTotal) {
		return 0
	}
	return p.standardFee
}

// QualifiesForFreeShipping reports whether subTotal meets the free-shipping threshold.
func (p *ShippingPolicy) QualifiesForFreeShipping(subTotal int64) bool {
	return p.freeThreshold > 0 && subTotal >= p.freeThreshold
}

// Quote prices shipping for subTotal
func (p *ShippingPolicy) Quote(subTotal int64) *ShippingQuote {
	if subTotal < 0 {
		subTotal = 0
	}

	fee := p.Fee(subTotal)
	quote := &ShippingQuote{
		SubTotal:          subTotal,
		StandardFee:       fee,
		FreeShipping:      fee == 0,
		FreeShippingAbove: p.freeThreshold,
		AvailableMethods: []ShippingMethod{
			{
				ID:            "standard",
				Name:          "Standard Shipping",
				Description:   "Regular delivery in 5-7 business days",
				Price:         fee,
				EstimatedDays: "5-7 business days",
				Carrier:       "India Post",
			},
			{
				ID:            "express",
				Name:          "Express Shipping",
				Description:   "Fast delivery in 2-3 business days",
				Price:         fee + p.standardFee,
				EstimatedDays: "2-3 business days",
				Carrier:       "BlueDart",
			},
		},
	}
	if !quote.FreeShipping && p.freeThreshold > 0 {
		quote.AmountToFreeShip = p.freeThreshold - subTotal
		quote.AvailableMethods[0].Description = "Add more to unlock free standard shipping"
	}
	return quote
}
