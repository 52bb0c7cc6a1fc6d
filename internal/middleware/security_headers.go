package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders adds security-related HTTP headers to responses.
// Pages served here only ever submit forms to the bank payment pages, so
// form-action is restricted to those origins.
type SecurityHeaders struct {
	isDevelopment bool
	formActions   []string
	scriptSources []string
}

// NewSecurityHeaders creates a new security headers middleware.
// formActions are the origins forms may post to; scriptSources are extra
// script-src entries such as the hash of the auto-submit script.
func NewSecurityHeaders(isDevelopment bool, formActions, scriptSources []string) *SecurityHeaders {
	return &SecurityHeaders{
		isDevelopment: isDevelopment,
		formActions:   formActions,
		scriptSources: scriptSources,
	}
}

// ContentSecurityPolicy returns the CSP header value
func (sh *SecurityHeaders) ContentSecurityPolicy() string {
	formAction := "'none'"
	if len(sh.formActions) > 0 {
		formAction = strings.Join(sh.formActions, " ")
	}

	scriptSrc := "'none'"
	if len(sh.scriptSources) > 0 {
		scriptSrc = strings.Join(sh.scriptSources, " ")
	}

	directives := []string{
		"default-src 'none'",
		"script-src " + scriptSrc,
		"style-src 'unsafe-inline'",
		"frame-ancestors 'none'",
		"base-uri 'none'",
		"form-action " + formAction,
	}
	if sh.isDevelopment {
		directives[0] = "default-src 'self'"
	}
	return strings.Join(directives, "; ")
}

// Middleware wraps an HTTP handler with security headers
func (sh *SecurityHeaders) Middleware(next http.Handler) http.Handler {
	csp := sh.ContentSecurityPolicy()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// HSTS only outside development to keep plain http usable locally
		if !sh.isDevelopment {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		w.Header().Set("Content-Security-Policy", csp)

		// The bank sees the shop origin, never the full return URL
		w.Header().Set("Referrer-Policy", "origin")

		w.Header().Set("Permissions-Policy",
			"geolocation=(), microphone=(), camera=(), payment=(), usb=()")
		w.Header().Set("X-Permitted-Cross-Domain-Policies", "none")

		next.ServeHTTP(w, r)
	})
}
