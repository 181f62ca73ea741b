package handlers

import (
	"net/http"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/orders"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders *orders.Service
	logger *logger.Logger
}

func NewOrderHandler(orders *orders.Service, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// Confirmation serves /orders/confirmation?id=.
func (h *OrderHandler) Confirmation(c *gin.Context) {
	h.get(c, c.Query("id"))
}

func (h *OrderHandler) Get(c *gin.Context) {
	h.get(c, c.Param("id"))
}

func (h *OrderHandler) get(c *gin.Context, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		respondError(c, h.logger, apperrors.NotFound("order not found"))
		return
	}
	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateStatus is the admin-only status transition.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}
