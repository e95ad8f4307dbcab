// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("product variant not found")
)

// Service handles product read access
type Service struct {
	db *gorm.DB
}

// NewService creates a new product service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Search string `form:"search"`
	Brand  string `form:"brand"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// GetProducts lists active products with their variants
func (s *Service) GetProducts(req *ProductListRequest) (*ProductResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Product{}).Where("is_active = ?", true)
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}
	if req.Brand != "" {
		query = query.Where("LOWER(brand) = ?", strings.ToLower(req.Brand))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	err := query.
		Preload("Variants", "is_active = ?", true).
		Order("id ASC").
		Offset((req.Page - 1) * req.Limit).
		Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ProductResponse{
		Products: products,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetProduct returns an active product by id
func (s *Service) GetProduct(id uint) (*Product, error) {
	var p Product
	err := s.db.Preload("Variants", "is_active = ?", true).
		Where("id = ? AND is_active = ?", id, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &p, nil
}

// LookupUnitPrice resolves the authoritative unit price of a product, or of one
// of its variants when variantSKU is set. It runs on db so callers can pass a
// transaction handle.
func LookupUnitPrice(db *gorm.DB, productID uint, variantSKU string) (int64, error) {
	var p Product
	err := db.Select("id", "price", "is_active").Where("id = ?", productID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	if !p.IsActive {
		return 0, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}

	if variantSKU == "" {
		return p.UnitPrice(nil), nil
	}

	var v ProductVariant
	err = db.Where("product_id = ? AND sku = ?", productID, variantSKU).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrVariantNotFound, variantSKU)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load variant %s: %w", variantSKU, err)
	}
	return p.UnitPrice(&v), nil
}
