package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/gicesite/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// APIKeyAuth admits requests carrying "Authorization: Bearer <key>". With
// no key configured every request is refused.
func APIKeyAuth(key string, logger *zap.Logger) func(http.Handler) http.Handler {
	if key == "" {
		logger.Warn("API key not configured; API requests will be rejected")
	}
	want := []byte(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearer(r)
			if !ok {
				jsonutil.Error(w, http.StatusUnauthorized, "Missing or malformed Authorization header (expected: Bearer <api-key>)")
				return
			}
			if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				logger.Warn("API request rejected: bad API key",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				jsonutil.Error(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
