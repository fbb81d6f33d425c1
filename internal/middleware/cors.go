package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/samber/lo"
)

// CORSMiddleware returns CORS configuration for browser and mobile clients.
// Credentials are only allowed for an explicit origin list.
func CORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
			"X-Request-Id",
		},
		ExposedHeaders: []string{
			"X-Request-Id",
		},
		AllowCredentials: !lo.Contains(allowedOrigins, "*"),

		// Cache preflight requests for 5 minutes
		MaxAge: 300,
	})
}
