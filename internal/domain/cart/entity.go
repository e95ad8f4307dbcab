// internal/domain/cart/entity.go
package cart

// Line is a cart line as submitted by the client. Prices are never taken from the client.
type Line struct {
	ProductID  uint   `json:"productId" binding:"required"`
	VariantSKU string `json:"variantSku,omitempty"`
	Quantity   int    `json:"quantity"`
}

// PricedLine is a Line re-priced from the catalogue.
type PricedLine struct {
	ProductID  uint   `json:"productId"`
	VariantSKU string `json:"variantSku,omitempty"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unitPrice"`
	LineTotal  int64  `json:"lineTotal"`
}

// Snapshot is the request-scoped, server-priced view of a cart. It is never persisted.
type Snapshot struct {
	Lines         []PricedLine `json:"lines"`
	TotalQuantity int          `json:"totalQuantity"`
	SubTotal      int64        `json:"subTotal"` // paise
}

// CheapestUnitPrice returns the lowest unit price across all lines, or 0 for an empty snapshot.
func (s *Snapshot) CheapestUnitPrice() int64 {
	var cheapest int64
	for i, l := range s.Lines {
		if i == 0 || l.UnitPrice < cheapest {
			cheapest = l.UnitPrice
		}
	}
	return cheapest
}
