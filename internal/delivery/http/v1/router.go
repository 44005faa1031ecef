package v1

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"erinnerungslicht-backend/config"
	"erinnerungslicht-backend/internal/delivery/http/middleware"
	"erinnerungslicht-backend/internal/domain"
	"erinnerungslicht-backend/internal/usecase"
	"erinnerungslicht-backend/pkg/apperror"
	"erinnerungslicht-backend/pkg/i18n"
	"erinnerungslicht-backend/pkg/metrics"
	"erinnerungslicht-backend/pkg/ratelimit"
	"erinnerungslicht-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	ContactUC domain.ContactUsecase
	HealthUC  usecase.HealthUsecase
	Limiter   ratelimit.Limiter
	Metrics   *metrics.Metrics
	Security  *security.SecurityLogger
	Config    *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		// unparsable entries: trust nobody rather than everybody
		_ = r.SetTrustedProxies(nil)
	}

	lang, ok := i18n.Parse(cfg.DefaultLanguage)
	if !ok {
		lang = i18n.German
	}

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins)) // CORS must be first!
	r.Use(middleware.RequestID())
	r.Use(middleware.Language(lang))
	r.Use(middleware.Recovery(deps.Security))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeadersMiddleware(cfg.IsProduction()))
	r.Use(middleware.ErrorHandler())

	api := r.Group("/api")
	api.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	NewHealthHandler(api, deps.HealthUC)
	NewContactHandler(api, deps.ContactUC, middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Limiter:  deps.Limiter,
		Metrics:  deps.Metrics,
		Security: deps.Security,
	}))

	if cfg.MetricsEnabled && deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.NoRoute(notFound(cfg.StaticDir))

	return r
}

// notFound serves files from staticDir for GET requests outside /api and
// answers everything else with the JSON 404.
func notFound(staticDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if staticDir != "" && c.Request.Method == http.MethodGet && !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			if file, ok := staticFile(staticDir, c.Request.URL.Path); ok {
				c.File(file)
				return
			}
		}
		c.Error(apperror.NotFound(i18n.T(middleware.GetLanguage(c), i18n.MsgNotFound)))
	}
}

func staticFile(root, urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	if strings.HasSuffix(clean, "/") {
		clean += "index.html"
	}
	file := filepath.Join(root, filepath.FromSlash(clean))
	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
	}
	if err != nil || info.IsDir() {
		return "", false
	}
	return file, true
}
