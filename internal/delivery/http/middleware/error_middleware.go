package middleware

import (
	"errors"
	"log/slog"

	"erinnerungslicht-backend/internal/delivery/http/response"
	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/pkg/apperror"
	"erinnerungslicht-backend/pkg/i18n"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns the last error attached to the context into the JSON
// error shape. Internal details never reach the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		lang := GetLanguage(c)

		var (
			appErr   *apperror.AppError
			validErr *domain.ValidationError
		)
		switch {
		case errors.As(err, &appErr):
		case errors.As(err, &validErr):
			appErr = apperror.BadRequest(i18n.T(lang, i18n.MsgValidationFailed)).WithErrors(validErr.Messages)
		case errors.Is(err, domain.ErrSpamRejected):
			appErr = apperror.TooManyRequests(i18n.T(lang, i18n.MsgSpamDetected), err)
		default:
			slog.Error("Internal Server Error",
				"request_id", GetRequestID(c),
				"path", c.FullPath(),
				"error", err,
			)
			appErr = apperror.Internal(i18n.T(lang, i18n.MsgServerError), err)
		}
		response.Error(c, appErr.Code, appErr.Message, appErr.Errors)
	}
}
