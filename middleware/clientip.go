package middleware

import (
	"net"
	"net/http"
	"strings"

	goShield "github.com/MrEthical07/goShield"
)

// ClientMetadata attaches the caller's IP address, User-Agent, and optional
// X-Device-ID header to the request context for the Engine to consume.
//
// trustProxyHeaders selects where the IP comes from: when true, the first
// address in X-Forwarded-For (or X-Real-IP) wins; when false, only the TCP
// peer address is used. Enable it only behind a proxy that strips inbound
// forwarding headers.
func ClientMetadata(trustProxyHeaders bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ctx = goShield.WithClientIP(ctx, clientIP(r, trustProxyHeaders))
			if ua := r.UserAgent(); ua != "" {
				ctx = goShield.WithUserAgent(ctx, ua)
			}
			if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
				ctx = goShield.WithDeviceID(ctx, deviceID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			// First hop is the original client.
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
