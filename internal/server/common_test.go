package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddlewareAllowAll(t *testing.T) {
	handler := CORSMiddleware(okHandler())
	req := httptest.NewRequest("GET", "/api/projects", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("Allow-Credentials must not be set with wildcard origin")
	}
}

func TestCORSMiddlewareWithConfig(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://app.example.com"}}

	tests := []struct {
		name       string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{
			name:       "allowed origin",
			origin:     "https://app.example.com",
			method:     "GET",
			wantOrigin: "https://app.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "disallowed origin passes through without headers",
			origin:     "https://evil.example.com",
			method:     "GET",
			wantOrigin: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "disallowed preflight rejected",
			origin:     "https://evil.example.com",
			method:     "OPTIONS",
			wantOrigin: "",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "allowed preflight",
			origin:     "https://app.example.com",
			method:     "OPTIONS",
			wantOrigin: "https://app.example.com",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORSMiddlewareWithConfig(cfg, okHandler())
			req := httptest.NewRequest(tt.method, "/api/projects", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" && tt.wantOrigin != "*" {
				if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
					t.Error("expected Allow-Credentials for specific origin")
				}
			}
		})
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(okHandler())
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	checks := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range checks {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected Content-Security-Policy header")
	}
}
