package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"syscall"

	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns handler panics into a JSON 500. Panics caused by the client
// hanging up are dropped without a response.
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(error); ok && clientGone(err) {
			c.Abort()
			return
		}

		log := logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)
		if cartID, err := c.Cookie("cartId"); err == nil {
			log = log.With("cart_id", cartID)
		}
		if gin.IsDebugging() {
			log.Error("[Recovery] panic recovered: %v\n%s", recovered, debug.Stack())
		} else {
			log.Error("[Recovery] panic recovered: %s", fmt.Sprint(recovered))
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
