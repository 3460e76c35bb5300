package network

import (
	"net/http/httptest"
	"testing"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name          string
		xForwardedFor string
		xRealIP       string
		remoteAddr    string
		want          string
	}{
		{name: "forwarded chain uses first hop", xForwardedFor: "203.0.113.7, 10.0.0.2", remoteAddr: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "forwarded with spaces", xForwardedFor: "  203.0.113.7  ", remoteAddr: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "real ip", xRealIP: "198.51.100.4", remoteAddr: "10.0.0.1:1234", want: "198.51.100.4"},
		{name: "forwarded beats real ip", xForwardedFor: "203.0.113.7", xRealIP: "198.51.100.4", remoteAddr: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "remote addr with port", remoteAddr: "192.0.2.1:8080", want: "192.0.2.1"},
		{name: "remote addr without port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
		{name: "ipv6 with port", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "ipv6 loopback", remoteAddr: "[::1]:12345", want: "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			req.RemoteAddr = tt.remoteAddr

			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
