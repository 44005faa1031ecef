package middleware

import (
	"net/http"

	"erinnerungslicht-backend/internal/delivery/http/response"
	"erinnerungslicht-backend/pkg/i18n"
	"erinnerungslicht-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// Recovery answers a panicking handler with the generic 500 JSON body.
func Recovery(sl *security.SecurityLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		sl.LogServerError(c.Request.Context(), c.ClientIP(), GetRequestID(c), c.Request.URL.Path, recovered)
		response.Error(c, http.StatusInternalServerError, i18n.T(GetLanguage(c), i18n.MsgServerError), nil)
		c.Abort()
	})
}
