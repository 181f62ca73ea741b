package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/checkout"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/payments"

	"github.com/gin-gonic/gin"
)

const checkoutPath = "/checkout"

type CheckoutHandler struct {
	checkout *checkout.Service
	cookie   CartCookie
	logger   *logger.Logger
}

func NewCheckoutHandler(checkout *checkout.Service, cookie CartCookie, logger *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		cookie:   cookie,
		logger:   logger,
	}
}

func confirmationURL(order *models.Order) string {
	return "/orders/confirmation?id=" + url.QueryEscape(order.ID)
}

// Summary returns the priced cart the checkout page shows.
func (h *CheckoutHandler) Summary(c *gin.Context) {
	summary, err := h.checkout.Quote(c.Request.Context(), h.cookie.Read(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// Submit accepts the checkout form as JSON or url-encoded fields. Form posts
// are redirected to the confirmation page; JSON callers get the order.
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var req checkout.SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.checkout.Submit(c.Request.Context(), h.cookie.Read(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if isFormPost(c) {
		c.Redirect(http.StatusSeeOther, confirmationURL(order))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data":     order,
		"redirect": confirmationURL(order),
	})
}

type stripeStartRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}

func (h *CheckoutHandler) StartStripe(c *gin.Context) {
	var req stripeStartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	customer := payments.Customer{Name: strings.TrimSpace(req.Name), Email: strings.TrimSpace(req.Email)}
	intent, summary, err := h.checkout.StartStripe(c.Request.Context(), h.cookie.Read(c), customer)
	if err != nil {
		h.providerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_secret":     intent.ClientSecret,
		"payment_intent_id": intent.ID,
		"mode":              intent.Mode,
		"summary":           summary,
	})
}

func (h *CheckoutHandler) StartPayPal(c *gin.Context) {
	order, err := h.checkout.StartPayPal(c.Request.Context(), h.cookie.Read(c))
	if err != nil {
		h.providerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"approval_url": order.ApprovalURL,
		"order_id":     order.ID,
		"mode":         order.Mode,
	})
}

// PayPalReturn is where PayPal sends the buyer after approval.
func (h *CheckoutHandler) PayPalReturn(c *gin.Context) {
	order, err := h.checkout.CompletePayPal(c.Request.Context(), c.Query("token"))
	if err != nil {
		h.logger.Warn("PayPal return for token %q failed: %v", c.Query("token"), err)
		c.Redirect(http.StatusSeeOther, checkoutPath+"?error=payment")
		return
	}
	if order == nil {
		c.Redirect(http.StatusSeeOther, checkoutPath+"?error=payment")
		return
	}
	c.Redirect(http.StatusSeeOther, confirmationURL(order))
}

func (h *CheckoutHandler) PayPalCancel(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, checkoutPath)
}

// providerError keeps payment initiation failures inside the checkout funnel.
func (h *CheckoutHandler) providerError(c *gin.Context, err error) {
	if !apperrors.Is(err, apperrors.KindProvider) {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Warn("Payment initiation failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{
		"error":    apperrors.PublicMessage(err),
		"redirect": checkoutPath,
	})
}

func isFormPost(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == gin.MIMEPOSTForm || ct == gin.MIMEMultipartPOSTForm
}
