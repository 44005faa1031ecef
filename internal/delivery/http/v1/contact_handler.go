package v1

import (
	"net/http"
	"time"

	"erinnerungslicht-backend/internal/delivery/http/middleware"
	"erinnerungslicht-backend/internal/delivery/http/response"
	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/pkg/apperror"
	"erinnerungslicht-backend/pkg/i18n"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contactUC domain.ContactUsecase
}

// NewContactHandler registers the contact route. Admission control runs in
// front of the handler, so rejected requests are never validated.
func NewContactHandler(public *gin.RouterGroup, contactUC domain.ContactUsecase, admission ...gin.HandlerFunc) {
	handler := &ContactHandler{
		contactUC: contactUC,
	}

	handlers := append(admission, handler.SubmitContact)
	public.POST("/contact", handlers...)
}

// SubmitContact godoc
// @Summary      Submit Contact Form
// @Description  Validate a contact form submission, screen it for spam and notify the site operator.
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        contact  body      domain.ContactRequest  true  "Contact Form Data"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	lang := middleware.GetLanguage(c)

	var req domain.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(i18n.T(lang, i18n.MsgInvalidRequest)).WithErrors([]string{i18n.T(lang, i18n.MsgInvalidRequest)}))
		return
	}

	sub := req.ToSubmission()
	sub.ClientIP = c.ClientIP()
	sub.UserAgent = c.GetHeader("User-Agent")
	sub.RequestID = middleware.GetRequestID(c)
	sub.Language = string(lang)
	sub.ReceivedAt = time.Now()

	if _, err := h.contactUC.Submit(c.Request.Context(), sub); err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, i18n.T(lang, i18n.MsgSent), nil)
}
