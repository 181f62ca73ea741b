package handlers

import (
	"errors"
	"net/http"

	"storefront/internal/apperrors"
	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

const cartCookieName = "cartId"

// respondError writes the JSON error body for err and logs failures that are
// ours rather than the client's.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	body := gin.H{"error": apperrors.PublicMessage(err)}

	var stale *apperrors.StaleReferenceError
	if errors.As(err, &stale) {
		body["stale_line_ids"] = stale.LineIDs
	}

	if status >= http.StatusInternalServerError {
		log.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		_ = c.Error(err)
	} else {
		log.Debug("%s %s rejected: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, body)
}

// CartCookie reads and issues the cookie that binds a browser to its cart.
type CartCookie struct {
	Secure bool
}

func (cc CartCookie) Read(c *gin.Context) string {
	id, err := c.Cookie(cartCookieName)
	if err != nil {
		return ""
	}
	return id
}

func (cc CartCookie) Write(c *gin.Context, cartID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cartCookieName, cartID, 60*60*24*30, "/", "", cc.Secure, true)
}
