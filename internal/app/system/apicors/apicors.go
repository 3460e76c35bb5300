// Package apicors sets CORS headers on the read-only, API-key authenticated
// export endpoints. No cookies ride on those requests, so any origin may be
// allowed and credentials never are.
package apicors

import "net/http"

const (
	allowMethods = "GET, OPTIONS"
	allowHeaders = "Authorization, Accept"
	maxAge       = "86400"
)

// Middleware allows the listed origins, or every origin when none are given,
// and answers preflight requests itself.
func Middleware(origins ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			switch origin := r.Header.Get("Origin"); {
			case len(allowed) == 0:
				h.Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Max-Age", maxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
