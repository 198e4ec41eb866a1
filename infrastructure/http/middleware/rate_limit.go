package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/agentity/agentity/application/port/outbound"
	apperr "github.com/agentity/agentity/domain/error"
	"github.com/agentity/agentity/infrastructure/http/response"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// RateLimitMiddleware throttles a route per client IP.
type RateLimitMiddleware struct {
	limiter  outbound.RateLimiter
	log      logger.Logger
	attempts int
	window   time.Duration
}

func NewRateLimitMiddleware(limiter outbound.RateLimiter, log logger.Logger, attempts int, window time.Duration) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, log: log, attempts: attempts, window: window}
}

func (m *RateLimitMiddleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		allowed, err := m.limiter.Allow(r.Context(), "ip:"+ip, m.attempts, m.window)
		if err != nil {
			// Limiter outage must not take the endpoint down with it.
			m.log.Warn(r.Context(), "rate limiter unavailable, allowing request", map[string]interface{}{
				"ip": ip, "reason": err.Error(),
			})
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			response.AppError(w, apperr.ErrRateLimitExceeded("IP: "+ip))
			return
		}
		next.ServeHTTP(w, r)
	}
}

// ClientIP resolves the caller address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
