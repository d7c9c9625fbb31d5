package handlers

import (
	"net"
	"net/http"
	"strings"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// allowRequest consumes a token for the caller in scope and writes a 429 when
// none is left. X-Forwarded-For is only consulted when trustProxy is set.
func allowRequest(limiter RateLimiter, trustProxy bool, w http.ResponseWriter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	ip := clientIP(r, trustProxy)
	if limiter.Allow(scope + ":" + ip) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	respondError(r.Context(), w, http.StatusTooManyRequests, detailTooMany)
	return false
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
