package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// SessionHeader groups dashboard requests from one browser view.
const SessionHeader = "X-Dashboard-Session"

// CORS returns middleware that lets the dashboard frontends call the API.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
