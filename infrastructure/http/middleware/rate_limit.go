package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clearauth/token-service/application/port/inbound"
	"github.com/clearauth/token-service/infrastructure/http/response"
	"github.com/clearauth/token-service/infrastructure/service/logger"
)

type RateLimitMiddleware struct {
	rateLimitService inbound.RateLimitService
	logger           logger.Logger
	attempts         int
	window           time.Duration
	blockDuration    time.Duration
}

func NewRateLimitMiddleware(
	rateLimitService inbound.RateLimitService,
	log logger.Logger,
	attempts int,
	window time.Duration,
	blockDuration time.Duration,
) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		logger:           log,
		attempts:         attempts,
		window:           window,
		blockDuration:    blockDuration,
	}
}

// RateLimit guards the token endpoint with per-IP counters. Limiter
// errors never reject a request; the grant flows stay available when
// redis is down.
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := getClientIP(r)
		key := fmt.Sprintf("token:ip:%s", clientIP)

		isBlocked, err := m.rateLimitService.IsBlocked(ctx, key)
		if err != nil {
			m.logger.Error(ctx, "Failed to check block status", err, map[string]interface{}{
				"ip": clientIP,
			})
		}
		if isBlocked {
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_blocked", "MEDIUM", map[string]interface{}{
				"ip":   clientIP,
				"path": r.URL.Path,
			})
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.blockDuration.Seconds())))
			response.TooManyRequests(w, "Too many requests. Please try again later.")
			return
		}

		allowed, err := m.rateLimitService.CheckLimit(ctx, key, m.attempts, m.window)
		if err != nil {
			m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{
				"ip": clientIP,
			})
			allowed = true
		}
		if !allowed {
			if err := m.rateLimitService.Block(ctx, key, m.blockDuration, "Rate limit exceeded"); err != nil {
				m.logger.Error(ctx, "Failed to block IP", err, map[string]interface{}{
					"ip": clientIP,
				})
			}
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", "HIGH", map[string]interface{}{
				"ip":   clientIP,
				"path": r.URL.Path,
			})
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.blockDuration.Seconds())))
			response.TooManyRequests(w, "Too many requests. Please try again later.")
			return
		}

		if err := m.rateLimitService.Increment(ctx, key, m.window); err != nil {
			m.logger.Error(ctx, "Failed to record attempt", err, map[string]interface{}{
				"ip": clientIP,
			})
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP, preferring proxy headers.
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
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
