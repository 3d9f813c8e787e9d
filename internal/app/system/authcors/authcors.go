// Package authcors applies CORS to the delegated auth API. Only the
// configured application origin is allowed.
package authcors

import (
	"net/http"

	"github.com/go-chi/cors"
)

var corsHeaders = []string{
	"Access-Control-Allow-Origin",
	"Access-Control-Allow-Credentials",
	"Access-Control-Allow-Methods",
	"Access-Control-Allow-Headers",
	"Access-Control-Expose-Headers",
	"Access-Control-Max-Age",
}

// Middleware allows cross-origin GET and POST from origin exactly. For any
// other Origin, CORS headers set further down the chain are removed.
func Middleware(origin string) func(http.Handler) http.Handler {
	allow := cors.Handler(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return func(next http.Handler) http.Handler {
		inner := allow(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o := r.Header.Get("Origin"); o != "" && o != origin {
				w = &stripWriter{ResponseWriter: w}
			}
			inner.ServeHTTP(w, r)
		})
	}
}

// stripWriter drops CORS headers just before the response is committed.
type stripWriter struct {
	http.ResponseWriter
	wrote bool
}

func (s *stripWriter) strip() {
	if s.wrote {
		return
	}
	s.wrote = true
	h := s.ResponseWriter.Header()
	for _, k := range corsHeaders {
		h.Del(k)
	}
}

func (s *stripWriter) WriteHeader(code int) {
	s.strip()
	s.ResponseWriter.WriteHeader(code)
}

func (s *stripWriter) Write(b []byte) (int, error) {
	s.strip()
	return s.ResponseWriter.Write(b)
}

func (s *stripWriter) Unwrap() http.ResponseWriter { return s.ResponseWriter }
