// internal/domain/cart/service.go
package cart

import (
	"errors"
	"fmt"

	"github.com/your-org/beauty-store-backend/internal/config"
	"github.com/your-org/beauty-store-backend/internal/domain/product"
	"gorm.io/gorm"
)

var ErrInvalidCart = errors.New("invalid cart items")

// Pricer recomputes cart totals from product and variant records.
type Pricer struct {
	maxQuantity int
	maxLines    int
}

// NewPricer creates a pricer using the cart limits from config
func NewPricer(cfg *config.Config) *Pricer {
	return &Pricer{
		maxQuantity: cfg.WelcomeGift.MaxCartQuantity,
		maxLines:    cfg.WelcomeGift.MaxCartLines,
	}
}

// Price builds a Snapshot for lines. Quantities are clamped to [1, maxQuantity].
// db may be a transaction.
func (p *Pricer) Price(db *gorm.DB, lines []Line) (*Snapshot, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}
	if p.maxLines > 0 && len(lines) > p.maxLines {
		return nil, fmt.Errorf("%w: at most %d lines allowed", ErrInvalidCart, p.maxLines)
	}

	snap := &Snapshot{Lines: make([]PricedLine, 0, len(lines))}
	for i, l := range lines {
		if l.ProductID == 0 {
			return nil, fmt.Errorf("%w: line %d has no product", ErrInvalidCart, i+1)
		}

		unit, err := product.LookupUnitPrice(db, l.ProductID, l.VariantSKU)
		if err != nil {
			return nil, err
		}

		qty := p.clamp(l.Quantity)
		line := PricedLine{
			ProductID:  l.ProductID,
			VariantSKU: l.VariantSKU,
			Quantity:   qty,
			UnitPrice:  unit,
			LineTotal:  unit * int64(qty),
		}
		snap.Lines = append(snap.Lines, line)
		snap.TotalQuantity += qty
		snap.SubTotal += line.LineTotal
	}

	return snap, nil
}

func (p *Pricer) clamp(qty int) int {
	if qty < 1 {
		return 1
	}
	if p.maxQuantity > 0 && qty > p.maxQuantity {
		return p.maxQuantity
	}
	return qty
}
