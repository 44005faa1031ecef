package middleware

import (
	"net/http"

	"erinnerungslicht-backend/internal/delivery/http/response"
	"erinnerungslicht-backend/pkg/i18n"

	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies at limit bytes. Declared oversize bodies are
// refused up front; others fail when the handler reads past the limit.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			response.Error(c, http.StatusBadRequest, i18n.T(GetLanguage(c), i18n.MsgInvalidRequest), nil)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
