package middleware

import (
	"context"
	"net"
	"strings"

	"github.com/dimitrije/family-core/internal/audit"
	"github.com/m1z23r/drift/pkg/drift"
)

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func ClientIP(c *drift.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}

// RequestContext returns the request context carrying the caller's address
// and user agent for audit entries.
func RequestContext(c *drift.Context) context.Context {
	return audit.WithRequest(c.Request.Context(), ClientIP(c), c.GetHeader("User-Agent"))
}
