// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a sellable catalogue item
type Product struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SKU          string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name         string         `gorm:"not null;size:255" json:"name"`
	Slug         string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Brand        string         `gorm:"size:100" json:"brand"`
	Description  string         `gorm:"type:text" json:"description"`
	Price        int64          `gorm:"not null" json:"price"` // Price in paise
	ComparePrice int64          `json:"compare_price"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	Quantity     int            `gorm:"default:0" json:"quantity"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// ProductVariant represents a shade or size of a product
type ProductVariant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	SKU       string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	Price     int64          `json:"price"` // Overrides product price when > 0
	Quantity  int            `gorm:"default:0" json:"quantity"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }

// UnitPrice returns the price charged for one unit, honouring the variant override.
func (p *Product) UnitPrice(v *ProductVariant) int64 {
	if v != nil && v.Price > 0 {
		return v.Price
	}
	return p.Price
}

func (p *Product) GetDiscountPercentage() int {
	if p.ComparePrice > 0 && p.Price < p.ComparePrice {
		return int(((p.ComparePrice - p.Price) * 100) / p.ComparePrice)
	}
	return 0
}
