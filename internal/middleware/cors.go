// Package middleware implements the outer, tower-style infra layers
// spec.md §1 treats as opaque collaborators wrapping the core request
// pipeline: CORS, compression, timeout, rate-limiting and response
// caching. None of these participate in endpoint routing or auth; they
// only see a plain http.Handler.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS mirrors the teacher's permissive default, appropriate for an API
// server whose actual origin policy is a project setting the compiler
// hasn't been asked to expose yet.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
