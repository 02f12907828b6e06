// Package api implements the annotation HTTP API: project and document
// CRUD, pack decode, entry mutations with optimistic revisions, jobs,
// project export, and WebSocket change notification.
package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openscribe/scribe/internal/logging"
	"github.com/openscribe/scribe/internal/server"
	"github.com/openscribe/scribe/internal/store"
)

// Handler builds the full middleware chain around the route mux.
// Order from innermost out: timing, security headers, auth, rate
// limiting, CORS, then request logging so every request is logged
// with its ID.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()

	handler = contentTypeGuard(handler)
	handler = server.TimingMiddleware(handler)
	handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), handler)

	if s.cfg.Auth.Enabled {
		handler = AuthMiddleware(s.cfg.Auth, handler)
	}

	if s.cfg.RateLimitRequests > 0 {
		limiter := NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: s.cfg.RateLimitRequests,
			BurstSize:         s.cfg.RateLimitBurst,
		})
		handler = limiter.Middleware(handler)
	}

	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{
		AllowedOrigins: s.cfg.AllowedOrigins,
	}, handler)

	return logging.CombinedMiddleware(handler)
}

// contentTypeGuard rejects write requests whose declared Content-Type
// is not an accepted upload type. Requests without the header pass
// through, since clients like curl often omit it.
func contentTypeGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !server.ValidateContentType(ct, server.AllowedUploadContentTypes) {
				respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
					fmt.Sprintf("Content-Type %q is not accepted", ct))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Start opens the store and serves the API until the listener fails.
func Start(cfg Config) error {
	if cfg.Auth.Enabled {
		if err := ValidateAuthConfig(cfg.Auth); err != nil {
			return fmt.Errorf("auth configuration: %w\n%s", err, GenerateAPIKeyExample())
		}
	}

	if cfg.TLS.Enabled {
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return fmt.Errorf("TLS certificate: %w", err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return fmt.Errorf("TLS key: %w", err)
		}
	}

	if cfg.ExportsDir != "" {
		if err := os.MkdirAll(cfg.ExportsDir, 0o755); err != nil {
			return fmt.Errorf("exports directory: %w", err)
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := NewServer(cfg, st)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	protocol := "http"
	if cfg.TLS.Enabled {
		protocol = "https"
	}
	logging.ServerStartup("api", protocol, cfg.Port,
		"db_path", server.AbsPath(cfg.DBPath),
		"auth_enabled", cfg.Auth.Enabled,
		"tls_enabled", cfg.TLS.Enabled,
		"rate_limit", cfg.RateLimitRequests,
	)

	if cfg.TLS.Enabled {
		return httpServer.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}
	return httpServer.ListenAndServe()
}
