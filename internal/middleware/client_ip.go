package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the caller IP. Proxy headers are honored only when
// trustProxy is set, otherwise the socket address is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// X-Forwarded-For can contain multiple IPs, the first one is the client
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
				return ip
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}

		// Cloudflare
		if cfIP := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cfIP != "" {
			return cfIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return host
}

// HTTPRequestContext adapts an *http.Request to ports.RequestContext
type HTTPRequestContext struct {
	r          *http.Request
	trustProxy bool
}

// NewRequestContext wraps a request. The form is parsed on first field access.
func NewRequestContext(r *http.Request, trustProxy bool) *HTTPRequestContext {
	return &HTTPRequestContext{r: r, trustProxy: trustProxy}
}

// ClientIP implements ports.RequestContext
func (c *HTTPRequestContext) ClientIP() string {
	return ClientIP(c.r, c.trustProxy)
}

// RawFieldValue implements ports.RequestContext. Body parameters take
// precedence over the query string.
func (c *HTTPRequestContext) RawFieldValue(name string) (string, bool) {
	if c.r.Form == nil {
		_ = c.r.ParseForm()
	}
	if values, ok := c.r.PostForm[name]; ok && len(values) > 0 {
		return values[0], true
	}
	if values, ok := c.r.Form[name]; ok && len(values) > 0 {
		return values[0], true
	}
	return "", false
}
