// Package middleware provides reusable HTTP middleware for the ritlog API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// corsMaxAge is how long, in seconds, browsers may cache a preflight result.
const corsMaxAge = 600

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Entries are full origins (scheme + host, no trailing slash) and may use one
// "*" wildcard, e.g. "https://*.ritlog.nl" for per-customer subdomains.
// X-User-ID must be allowed so browser clients behind the auth proxy can
// send it; Content-Disposition is exposed for CSV report downloads.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", UserIDHeader},
		ExposedHeaders: []string{"Content-Disposition", "Retry-After"},
		MaxAge:         corsMaxAge,
	})
	return c.Handler
}
