package middlewares

import (
	"net/http"

	common "github.com/coffeechess/coordinator/pkg/domain"
)

// CORSMiddleware handles CORS for the coordinator's REST and websocket
// upgrade routes. Its allowlist comes from common.GatewayConfig (sourced
// from GATEWAY_CORS_ALLOWED_ORIGINS / GATEWAY_CORS_DEFAULT_ORIGIN at
// process startup), not from env vars read inline here — config loading
// is ioc's job, not the middleware's.
type CORSMiddleware struct {
	allowedOrigins map[string]bool
	defaultOrigin  string
}

// chessClientDevOrigins are always allowed alongside whatever
// GatewayConfig supplies, so a local frontend dev server (Vite's default
// port, plus the common Next.js/CRA fallback) works without any env
// configuration.
var chessClientDevOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// NewCORSMiddleware builds the allowlist from cfg, falling back to
// DefaultOrigin when a request's Origin header isn't recognized.
func NewCORSMiddleware(cfg common.GatewayConfig) *CORSMiddleware {
	m := &CORSMiddleware{
		allowedOrigins: make(map[string]bool),
		defaultOrigin:  cfg.DefaultOrigin,
	}
	if m.defaultOrigin == "" {
		m.defaultOrigin = chessClientDevOrigins[0]
	}

	for _, origin := range cfg.AllowedOrigins {
		m.allowedOrigins[origin] = true
	}
	m.allowedOrigins[m.defaultOrigin] = true
	for _, origin := range chessClientDevOrigins {
		m.allowedOrigins[origin] = true
	}

	return m
}

// isOriginAllowed checks if the request origin is in the allowed list
func (m *CORSMiddleware) isOriginAllowed(origin string) bool {
	return m.allowedOrigins[origin]
}

// Handler is the middleware function that adds CORS headers to all responses
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Determine which origin to allow
		allowedOrigin := m.defaultOrigin
		if origin != "" && m.isOriginAllowed(origin) {
			allowedOrigin = origin
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
