package httpkit

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TokenAuth rejects requests whose token query parameter does not match
// the shared secret. Comparison is constant time.
func TokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.Query("token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			Error(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
