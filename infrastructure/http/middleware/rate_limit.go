package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arw/arw-api/application/port/inbound"
	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/infrastructure/http/response"
	"github.com/arw/arw-api/infrastructure/service/logger"
)

// RateLimitPolicy bounds requests per client IP for one group of routes.
type RateLimitPolicy struct {
	Name          string
	Limit         int
	Window        time.Duration
	BlockDuration time.Duration
}

type RateLimitMiddleware struct {
	rateLimitService inbound.RateLimitService
	logger           logger.Logger
	trustedProxies   []*net.IPNet
}

// NewRateLimitMiddleware keys requests on the connecting peer. Forwarding
// headers are honoured only when the peer is one of trustedProxies (IPs or
// CIDRs); unparsable entries are skipped.
func NewRateLimitMiddleware(rateLimitService inbound.RateLimitService, logger logger.Logger, trustedProxies []string) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		logger:           logger,
		trustedProxies:   parseTrustedProxies(trustedProxies),
	}
}

// Limit counts every request against policy. Limiter failures let the request through.
func (m *RateLimitMiddleware) Limit(policy RateLimitPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.rateLimitService == nil || policy.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientIP := m.clientIP(r)
			key := fmt.Sprintf("%s:ip:%s", policy.Name, clientIP)

			if policy.BlockDuration > 0 {
				isBlocked, err := m.rateLimitService.IsBlocked(ctx, key)
				if err != nil {
					m.logger.Error(ctx, "Failed to check block status", err, map[string]interface{}{"key": key})
				}
				if isBlocked {
					m.reject(w, r, policy, policy.BlockDuration)
					return
				}
			}

			allowed, err := m.rateLimitService.CheckLimit(ctx, key, policy.Limit, policy.Window)
			if err != nil {
				m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{"key": key})
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if policy.BlockDuration > 0 {
					if err := m.rateLimitService.Block(ctx, key, policy.BlockDuration, "Rate limit exceeded"); err != nil {
						m.logger.Error(ctx, "Failed to block client", err, map[string]interface{}{"key": key})
					}
				}
				logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", "HIGH", map[string]interface{}{
					"ip":        clientIP,
					"path":      r.URL.Path,
					"policy":    policy.Name,
					"userAgent": r.UserAgent(),
				})
				m.reject(w, r, policy, retryAfter(policy))
				return
			}

			if err := m.rateLimitService.Increment(ctx, key, policy.Window); err != nil {
				m.logger.Error(ctx, "Failed to count request", err, map[string]interface{}{"key": key})
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter, r *http.Request, policy RateLimitPolicy, wait time.Duration) {
	if wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
	}
	response.AppError(w, r, apperror.ErrRateLimitExceeded(policy.Limit, policy.Window))
}

func retryAfter(policy RateLimitPolicy) time.Duration {
	if policy.BlockDuration > 0 {
		return policy.BlockDuration
	}
	return policy.Window
}

// clientIP returns the peer address, or for a trusted proxy peer the nearest
// untrusted hop of X-Forwarded-For (falling back to X-Real-IP).
func (m *RateLimitMiddleware) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !m.trusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !m.trusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func (m *RateLimitMiddleware) trusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range m.trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func parseTrustedProxies(entries []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				continue
			}
			if ip.To4() != nil {
				e += "/32"
			} else {
				e += "/128"
			}
		}
		if _, n, err := net.ParseCIDR(e); err == nil {
			nets = append(nets, n)
		}
	}
	return nets
}
