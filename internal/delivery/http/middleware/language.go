package middleware

import (
	"erinnerungslicht-backend/pkg/i18n"

	"github.com/gin-gonic/gin"
)

// Language negotiates the response language from Accept-Language and
// announces it in Content-Language.
func Language(fallback i18n.Language) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18n.Negotiate(c.GetHeader("Accept-Language"), fallback)
		c.Set("Language", lang)
		c.Header("Content-Language", string(lang))
		c.Next()
	}
}

// GetLanguage returns the negotiated language, German when none was set.
func GetLanguage(c *gin.Context) i18n.Language {
	if lang, ok := c.Get("Language"); ok {
		if l, ok := lang.(i18n.Language); ok {
			return l
		}
	}
	return i18n.German
}
