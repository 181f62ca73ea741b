package handlers

import (
	"errors"
	"net/http"

	"storefront/internal/apperrors"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	carts    *cart.Service
	checkout *checkout.Service
	cookie   CartCookie
	logger   *logger.Logger
}

func NewCartHandler(carts *cart.Service, checkout *checkout.Service, cookie CartCookie, logger *logger.Logger) *CartHandler {
	return &CartHandler{
		carts:    carts,
		checkout: checkout,
		cookie:   cookie,
		logger:   logger,
	}
}

type addLineRequest struct {
	VariantID string `json:"variant_id" form:"variant_id" binding:"required"`
	Quantity  *int   `json:"quantity" form:"quantity"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity" form:"quantity"`
}

// current returns the browser's cart, issuing a new cookie when a cart is created.
func (h *CartHandler) current(c *gin.Context) (*models.Cart, error) {
	cart, created, err := h.carts.GetOrCreate(c.Request.Context(), h.cookie.Read(c))
	if err != nil {
		return nil, err
	}
	if created {
		h.cookie.Write(c, cart.ID)
	}
	return cart, nil
}

func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.current(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.render(c, http.StatusOK, cart)
}

func (h *CartHandler) AddLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	cart, err := h.current(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	cart, err = h.carts.AddLine(c.Request.Context(), cart.ID, req.VariantID, qty)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.render(c, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateLine(c *gin.Context) {
	var req updateLineRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.current(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	cart, err = h.carts.UpdateLine(c.Request.Context(), cart.ID, c.Param("id"), req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.render(c, http.StatusOK, cart)
}

func (h *CartHandler) RemoveLine(c *gin.Context) {
	cart, err := h.current(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	cart, err = h.carts.RemoveLine(c.Request.Context(), cart.ID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.render(c, http.StatusOK, cart)
}

// render answers with the cart and, when it has lines, its current totals.
func (h *CartHandler) render(c *gin.Context, status int, cart *models.Cart) {
	body := gin.H{"data": cart}

	summary, err := h.checkout.Quote(c.Request.Context(), cart.ID)
	var stale *apperrors.StaleReferenceError
	switch {
	case err == nil, errors.As(err, &stale):
		body["summary"] = summary
	case errors.Is(err, apperrors.ErrEmptyCart):
	default:
		h.logger.Warn("Failed to price cart %s: %v", cart.ID, err)
	}
	c.JSON(status, body)
}
