package handlers

import (
	"io"
	"net/http"

	"storefront/internal/apperrors"
	"storefront/internal/checkout"
	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	checkout *checkout.Service
	logger   *logger.Logger
}

func NewWebhookHandler(checkout *checkout.Service, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		checkout: checkout,
		logger:   logger,
	}
}

// Stripe handles Stripe deliveries. The body is read raw; the signature covers
// the exact bytes.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if len(payload) > maxWebhookBody {
		h.logger.Warn("Rejected webhook body over %d bytes", maxWebhookBody)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}

	result, err := h.checkout.ConfirmWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if apperrors.Is(err, apperrors.KindAuth) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	body := gin.H{"received": true, "event": result.EventType}
	if result.Order != nil {
		body["order_id"] = result.Order.ID
	}
	c.JSON(http.StatusOK, body)
}
