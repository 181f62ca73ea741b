package handlers

import (
	"net/http"
	"strconv"

	"storefront/internal/catalog"
	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	catalog *catalog.Store
	logger  *logger.Logger
}

func NewProductHandler(catalog *catalog.Store, logger *logger.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	// Pagination
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := catalog.ListFilter{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
		Vendor: c.Query("vendor"),
	}
	products, total, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": products,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.catalog.ProductByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}
