package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// CORSMiddleware answers preflights and adds CORS headers for the configured
// origins. Requests without an Origin header pass through untouched.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Accept-Language", "X-Requested-With", HeaderRequestID},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	})

	return func(c *gin.Context) {
		passed := false
		co.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		// preflight already answered by cors
		if !passed {
			c.Abort()
		}
	}
}
