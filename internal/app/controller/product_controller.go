package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{productService: productService}
}

// parseIDList reads "1,2,3".
func parseIDList(raw string) ([]uint, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// ListCategories returns every category
// GET /api/v1/categories
func (ctrl *ProductController) ListCategories(c *gin.Context) {
	categories, err := ctrl.productService.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "category")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"count":      len(categories),
	})
}

// ListProducts filters by ?category=<slug> and ?ids=1,2,3
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	ids, err := parseIDList(c.Query("ids"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "ids must be a comma separated list of numbers")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	products, err := ctrl.productService.List(c.Request.Context(), service.ProductListOptions{
		CategorySlug: strings.TrimSpace(c.Query("category")),
		IDs:          ids,
		InStockOnly:  c.Query("in_stock") == "true",
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		log.Warn("Failed to list products", map[string]interface{}{
			"category": c.Query("category"),
			"error":    err.Error(),
		})
		respondServiceError(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct returns one product
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	product, err := ctrl.productService.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		respondServiceError(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, product)
}
