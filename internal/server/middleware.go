package server

import (
	"net"
	"net/http"

	"github.com/jarvis-assistant/jarvis/internal/observability"
)

// maxBodyBytes caps request bodies well above the message-length limit so
// oversized payloads fail at the transport before JSON decoding.
const maxBodyBytes = 64 << 10

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitByIP gates a handler on the caller's IP budget.
func (s *Server) rateLimitByIP(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow("ip:" + clientIP(r)) {
			observability.RecordRateLimitRejection("ip")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// allowConversation applies the per-conversation budget once the key is
// known, inside the handler rather than as middleware.
func (s *Server) allowConversation(key string) bool {
	if s.limiter.Allow("conv:" + key) {
		return true
	}
	observability.RecordRateLimitRejection("conversation")
	return false
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client when the proxy chain is trusted.
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
