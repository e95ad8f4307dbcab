// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/beauty-store-backend/internal/domain/product"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	productService *product.Service
	log            *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service, log *logrus.Logger) *ProductHandler {
	return &ProductHandler{productService: productService, log: log}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req product.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.productService.GetProducts(&req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Products retrieved successfully", response)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "INVALID_INPUT", "Invalid product ID")
		return
	}

	p, err := h.productService.GetProduct(uint(id))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, "Product retrieved successfully", p)
}
