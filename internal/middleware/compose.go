package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Outer composes the fixed outer-layer order spec.md §4.10 mandates:
// cache → compression → CORS → timeout → rate-limit → router, so that
// rate-limited responses bypass the cache and cached responses bypass
// rate limiting.
func Outer(cache *ResponseCache, requestTimeout time.Duration, inner http.Handler) http.Handler {
	h := inner
	h = RateLimit()(h)
	h = chimiddleware.Timeout(requestTimeout)(h)
	h = CORS()(h)
	h = chimiddleware.Compress(5)(h)
	h = cache.Middleware()(h)
	return h
}
