package middleware

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

type cachedResponse struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

// ResponseCache is a minimal GET-only response cache keyed by method
// plus URL. It is deliberately thin: spec.md §1 treats the
// response-cache layer as an opaque collaborator, so this exists to
// give the fixed composition order of §4.10
// (cache → compression → CORS → timeout → rate-limit → router) a real
// layer to wrap rather than a documented no-op.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]cachedResponse
	ttl     time.Duration
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{entries: make(map[string]cachedResponse), ttl: ttl}
}

func (c *ResponseCache) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || c.ttl <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Method + " " + r.URL.String()

			c.mu.Lock()
			cached, ok := c.entries[key]
			c.mu.Unlock()

			if ok && time.Now().Before(cached.expires) {
				for k, vs := range cached.header {
					for _, v := range vs {
						w.Header().Add(k, v)
					}
				}
				w.Header().Set("X-Waveless-Cache", "hit")
				w.WriteHeader(cached.status)
				w.Write(cached.body)
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(rec, r)

			c.mu.Lock()
			c.entries[key] = cachedResponse{
				status:  rec.status,
				header:  rec.Header().Clone(),
				body:    rec.body.Bytes(),
				expires: time.Now().Add(c.ttl),
			}
			c.mu.Unlock()
		})
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

var _ io.Writer = (*recorder)(nil)
