// Package network provides network-related utilities.
package network

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP returns the visitor's address. Behind a reverse proxy the
// first X-Forwarded-For entry (or X-Real-IP) is used; otherwise the host part
// of RemoteAddr. IPv6 brackets and ports are stripped.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := clean(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := clean(xri); ip != "" {
			return ip
		}
	}
	return clean(r.RemoteAddr)
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return strings.Trim(s, "[]")
}
