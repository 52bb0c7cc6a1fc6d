package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name          string
		isDevelopment bool
		formActions   []string
		expectHSTS    bool
		expectCSP     string
	}{
		{
			name:        "production",
			formActions: []string{"https://p.monetico-services.com"},
			expectHSTS:  true,
			expectCSP:   "default-src 'none'; script-src 'sha256-abc'; style-src 'unsafe-inline'; frame-ancestors 'none'; base-uri 'none'; form-action https://p.monetico-services.com",
		},
		{
			name:          "development without form targets",
			isDevelopment: true,
			expectCSP:     "default-src 'self'; script-src 'sha256-abc'; style-src 'unsafe-inline'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := NewSecurityHeaders(tt.isDevelopment, tt.formActions, []string{"'sha256-abc'"})
			handler := sh.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, tt.expectCSP, rec.Header().Get("Content-Security-Policy"))
			assert.Equal(t, tt.expectHSTS, rec.Header().Get("Strict-Transport-Security") != "")
		})
	}
}
